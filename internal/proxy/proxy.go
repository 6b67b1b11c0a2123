// Package proxy implements the completion proxy: a stateless broker that
// forwards chat requests to the correct upstream provider, attaches the
// server-held credential, and normalizes responses and failures into one
// envelope shape. Provider keys never leave the server.
package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ChatMessage is one role-tagged turn sent to a provider
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the proxy's inbound contract
type CompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// Usage carries the provider-reported token counters
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the uniform success envelope. Model is the model
// the provider reports having served, which may differ from the requested
// identifier.
type CompletionResponse struct {
	GeneratedText string `json:"generatedText"`
	Model         string `json:"model,omitempty"`
	Usage         *Usage `json:"usage,omitempty"`
}

// ErrorEnvelope is the uniform failure envelope. Details carries the
// upstream's own error payload verbatim when one exists, null otherwise.
type ErrorEnvelope struct {
	Error      string          `json:"error"`
	StatusCode int             `json:"statusCode"`
	Details    json.RawMessage `json:"details"`
	Timestamp  string          `json:"timestamp"`
}

// Completer is the single operation the orchestrator needs from the proxy
type Completer interface {
	Complete(req CompletionRequest) (*CompletionResponse, error)
}

// ErrInvalidRequest is returned for a request missing model or messages;
// no upstream call is made.
var ErrInvalidRequest = errors.New("missing model or messages")

// CredentialError indicates the server-side secret for a provider is not
// configured. The secret name is safe to surface; its value never is.
type CredentialError struct {
	Secret string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("missing %s secret", e.Secret)
}

// UpstreamError preserves a provider failure: its status code and its raw
// error payload, for callers that need to debug the upstream.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}
