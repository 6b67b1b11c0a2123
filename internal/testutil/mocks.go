package testutil

import (
	"errors"
	"time"

	"multichat/internal/app"
	"multichat/internal/config"
	"multichat/internal/proxy"
	"multichat/internal/repository/db"
)

// MockDatabase is a mock implementation of db.Database for testing
type MockDatabase struct {
	// User mocks
	GetUserByUsernameFunc func(username string) (*db.User, error)
	CreateUserFunc        func(username, email, password string) (*db.User, error)

	// Conversation mocks
	GetConversationFunc         func(id string) (*db.Conversation, error)
	CreateConversationFunc      func(userID, title, model string) (*db.Conversation, error)
	GetConversationsByUserFunc  func(userID string) ([]db.Conversation, error)
	UpdateConversationTitleFunc func(id, title string) error
	DeleteConversationFunc      func(id string) error

	// Message mocks
	AddMessageFunc              func(conversationID, role, content, model string) (*db.Message, error)
	GetConversationMessagesFunc func(conversationID string) ([]db.Message, error)
}

// User methods
func (m *MockDatabase) GetUserByUsername(username string) (*db.User, error) {
	if m.GetUserByUsernameFunc != nil {
		return m.GetUserByUsernameFunc(username)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) CreateUser(username, email, password string) (*db.User, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(username, email, password)
	}
	return nil, errors.New("not implemented")
}

// Conversation methods
func (m *MockDatabase) GetConversation(id string) (*db.Conversation, error) {
	if m.GetConversationFunc != nil {
		return m.GetConversationFunc(id)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) CreateConversation(userID, title, model string) (*db.Conversation, error) {
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(userID, title, model)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) GetConversationsByUser(userID string) ([]db.Conversation, error) {
	if m.GetConversationsByUserFunc != nil {
		return m.GetConversationsByUserFunc(userID)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) UpdateConversationTitle(id, title string) error {
	if m.UpdateConversationTitleFunc != nil {
		return m.UpdateConversationTitleFunc(id, title)
	}
	return errors.New("not implemented")
}

func (m *MockDatabase) DeleteConversation(id string) error {
	if m.DeleteConversationFunc != nil {
		return m.DeleteConversationFunc(id)
	}
	return errors.New("not implemented")
}

// Message methods
func (m *MockDatabase) AddMessage(conversationID, role, content, model string) (*db.Message, error) {
	if m.AddMessageFunc != nil {
		return m.AddMessageFunc(conversationID, role, content, model)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) GetConversationMessages(conversationID string) ([]db.Message, error) {
	if m.GetConversationMessagesFunc != nil {
		return m.GetConversationMessagesFunc(conversationID)
	}
	return nil, errors.New("not implemented")
}

// MockCompleter is a mock implementation of proxy.Completer for testing
type MockCompleter struct {
	CompleteFunc func(req proxy.CompletionRequest) (*proxy.CompletionResponse, error)
}

func (m *MockCompleter) Complete(req proxy.CompletionRequest) (*proxy.CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(req)
	}
	return nil, errors.New("not implemented")
}

// NewMockConfig creates an app.Config for testing
func NewMockConfig(database db.Database) *app.Config {
	return &app.Config{
		DB: database,
		AppConfig: &config.AppConfig{
			Server: config.ServerConfig{Port: "8080"},
			Auth: config.AuthConfig{
				JWTSecret:       []byte("test-secret-key-that-is-long-enough!"),
				TokenExpiration: time.Hour,
			},
		},
		Models: config.DefaultModelCatalog(),
	}
}
