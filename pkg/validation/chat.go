package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxTitleLength = 200

// ChatRequestValidator validates chat-related requests
type ChatRequestValidator struct{}

// NewChatRequestValidator creates a new ChatRequestValidator
func NewChatRequestValidator() *ChatRequestValidator {
	return &ChatRequestValidator{}
}

// ValidateMessage rejects messages that are empty after trimming
func (v *ChatRequestValidator) ValidateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return errors.New("message cannot be empty")
	}
	return nil
}

// ValidateModel checks the model id against the allowed set
func (v *ChatRequestValidator) ValidateModel(model string, isKnown func(string) bool) error {
	if model == "" {
		return nil // Model is optional, the session default applies
	}

	if !isKnown(model) {
		return fmt.Errorf("unknown model: %s", model)
	}
	return nil
}

// ValidateTitle validates a conversation title for rename requests
func (v *ChatRequestValidator) ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("title cannot be empty")
	}

	if utf8.RuneCountInString(title) > maxTitleLength {
		return fmt.Errorf("title must be at most %d characters long", maxTitleLength)
	}
	return nil
}

// ValidateSendRequest validates a complete send request
func (v *ChatRequestValidator) ValidateSendRequest(message, model string, isKnown func(string) bool) error {
	if err := v.ValidateMessage(message); err != nil {
		return err
	}

	return v.ValidateModel(model, isKnown)
}
