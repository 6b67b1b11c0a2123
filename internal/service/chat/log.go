package chat

import (
	"time"

	"github.com/google/uuid"
)

// LogEntry is an ephemeral diagnostic record of one model invocation. It
// lives only in the session's in-memory transcript, attached to the
// assistant message it produced, and is never persisted.
type LogEntry struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Model           string    `json:"model"`
	Success         bool      `json:"success"`
	Error           string    `json:"error,omitempty"`
	ResponseTimeMS  int64     `json:"response_time_ms"`
	TokensUsed      *int      `json:"tokens_used,omitempty"`
	RequestContent  string    `json:"request_content"`
	ResponseContent string    `json:"response_content"`
}

// newSuccessLog records a completed model invocation
func newSuccessLog(model string, elapsedMS int64, tokensUsed *int, request, response string) *LogEntry {
	return &LogEntry{
		ID:              uuid.New().String(),
		Timestamp:       time.Now().UTC(),
		Model:           model,
		Success:         true,
		ResponseTimeMS:  elapsedMS,
		TokensUsed:      tokensUsed,
		RequestContent:  request,
		ResponseContent: response,
	}
}
