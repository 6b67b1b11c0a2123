package db

import "time"

// User represents a user in the database
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Conversation represents a titled, owned thread of messages tied to one
// model selection
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message represents one turn's content in a conversation. Messages are
// immutable once stored and ordered by CreatedAt ascending.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	Model          string
	CreatedAt      time.Time
}
