package postgres

import (
	"database/sql"
	"fmt"

	"multichat/internal/logger"
	"multichat/internal/repository/db"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreateConversation creates a new conversation for a user
func (p *PostgresDB) CreateConversation(userID, title, model string) (*db.Conversation, error) {
	conv := db.Conversation{
		ID:     uuid.New().String(),
		UserID: userID,
		Title:  title,
		Model:  model,
	}

	query := `
	INSERT INTO conversations (id, user_id, title, model)
	VALUES ($1, $2, $3, $4)
	RETURNING created_at, updated_at
	`

	err := p.conn.QueryRow(query, conv.ID, userID, title, model).Scan(&conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating conversation: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conv.ID,
		"user_id":         userID,
		"model":           model,
	}).Info("Created new conversation")

	return &conv, nil
}

// GetConversation retrieves a specific conversation
func (p *PostgresDB) GetConversation(id string) (*db.Conversation, error) {
	var conv db.Conversation
	query := `
	SELECT id, user_id, title, model, created_at, updated_at
	FROM conversations
	WHERE id = $1
	`

	err := p.conn.QueryRow(query, id).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Model, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation not found")
		}
		return nil, fmt.Errorf("error retrieving conversation: %w", err)
	}

	return &conv, nil
}

// GetConversationsByUser retrieves a user's conversations, most recently
// updated first
func (p *PostgresDB) GetConversationsByUser(userID string) ([]db.Conversation, error) {
	query := `
	SELECT id, user_id, title, model, created_at, updated_at
	FROM conversations
	WHERE user_id = $1
	ORDER BY updated_at DESC
	`

	rows, err := p.conn.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	var conversations []db.Conversation
	for rows.Next() {
		var conv db.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Model, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}

	return conversations, rows.Err()
}

// UpdateConversationTitle renames a conversation
func (p *PostgresDB) UpdateConversationTitle(id, title string) error {
	query := `UPDATE conversations SET title = $1 WHERE id = $2`
	result, err := p.conn.Exec(query, title, id)
	if err != nil {
		return fmt.Errorf("error renaming conversation: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("conversation not found")
	}

	logger.Log.WithField("conversation_id", id).Info("Renamed conversation")
	return nil
}

// DeleteConversation deletes a conversation; messages cascade
func (p *PostgresDB) DeleteConversation(id string) error {
	query := `DELETE FROM conversations WHERE id = $1`
	if _, err := p.conn.Exec(query, id); err != nil {
		return fmt.Errorf("error deleting conversation: %w", err)
	}

	logger.Log.WithField("conversation_id", id).Info("Deleted conversation")
	return nil
}

// AddMessage appends a message to a conversation and bumps the
// conversation's updated_at timestamp
func (p *PostgresDB) AddMessage(conversationID, role, content, model string) (*db.Message, error) {
	msg := db.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Model:          model,
	}

	query := `
	INSERT INTO messages (id, conversation_id, role, content, model)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at
	`

	err := p.conn.QueryRow(query, msg.ID, conversationID, role, content, model).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error adding message: %w", err)
	}

	updateQuery := `UPDATE conversations SET updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	if _, err := p.conn.Exec(updateQuery, conversationID); err != nil {
		logger.Log.WithError(err).Warn("Error updating conversation timestamp")
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"role":            role,
		"model":           model,
	}).Debug("Added message")

	return &msg, nil
}

// GetConversationMessages retrieves all messages of a conversation in
// ascending creation order
func (p *PostgresDB) GetConversationMessages(conversationID string) ([]db.Message, error) {
	query := `
	SELECT id, conversation_id, role, content, COALESCE(model, ''), created_at
	FROM messages
	WHERE conversation_id = $1
	ORDER BY created_at ASC
	`

	rows, err := p.conn.Query(query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	var messages []db.Message
	for rows.Next() {
		var msg db.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.Model, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
