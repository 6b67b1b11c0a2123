package db

// Database defines the interface for all database operations.
// This allows for easier testing through mocking and decouples the services
// from the specific database implementation.
type Database interface {
	// Users
	GetUserByUsername(username string) (*User, error)
	CreateUser(username, email, password string) (*User, error)

	// Conversations
	GetConversation(id string) (*Conversation, error)
	CreateConversation(userID, title, model string) (*Conversation, error)
	GetConversationsByUser(userID string) ([]Conversation, error)
	UpdateConversationTitle(id, title string) error
	DeleteConversation(id string) error

	// Messages
	AddMessage(conversationID, role, content, model string) (*Message, error)
	GetConversationMessages(conversationID string) ([]Message, error)
}
