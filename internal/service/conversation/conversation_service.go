// Package conversation manages a user's stored conversations: listing,
// renaming, deletion, and history retrieval, all scoped to the owner.
package conversation

import (
	"errors"
	"fmt"

	"multichat/internal/logger"
	"multichat/internal/repository/db"
)

// ErrNotFound is returned when a conversation does not exist or belongs
// to another user. Callers cannot tell the two apart.
var ErrNotFound = errors.New("conversation not found")

type Service struct {
	database db.Database
}

func NewService(database db.Database) *Service {
	return &Service{database: database}
}

// List returns the user's conversations, most recently updated first.
func (s *Service) List(userID string) ([]db.Conversation, error) {
	conversations, err := s.database.GetConversationsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// Get returns one conversation if it belongs to the user.
func (s *Service) Get(userID, conversationID string) (*db.Conversation, error) {
	conv, err := s.database.GetConversation(conversationID)
	if err != nil {
		return nil, ErrNotFound
	}
	if conv.UserID != userID {
		return nil, ErrNotFound
	}
	return conv, nil
}

// Rename updates a conversation's title after an ownership check.
func (s *Service) Rename(userID, conversationID, title string) error {
	if _, err := s.Get(userID, conversationID); err != nil {
		return err
	}

	if err := s.database.UpdateConversationTitle(conversationID, title); err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}

	logger.Log.WithField("conversation_id", conversationID).Info("Conversation renamed")
	return nil
}

// Delete removes a conversation and, through the schema's cascade, its
// messages.
func (s *Service) Delete(userID, conversationID string) error {
	if _, err := s.Get(userID, conversationID); err != nil {
		return err
	}

	if err := s.database.DeleteConversation(conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	logger.Log.WithField("conversation_id", conversationID).Info("Conversation deleted")
	return nil
}

// Messages returns a conversation's history in chronological order.
func (s *Service) Messages(userID, conversationID string) ([]db.Message, error) {
	if _, err := s.Get(userID, conversationID); err != nil {
		return nil, err
	}

	messages, err := s.database.GetConversationMessages(conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return messages, nil
}
