package proxy

import (
	"net/http"
	"strings"
)

// maxResponseTokens caps the length of a generated completion
const maxResponseTokens = 4000

// defaultTemperature is the sampling temperature for models that accept one
const defaultTemperature = 0.7

// capOnlyFamilies are the model families that take max_completion_tokens
// and reject a temperature parameter.
var capOnlyFamilies = []string{"gpt-5", "gpt-4.1", "o3", "o4"}

type openAIRequest struct {
	Model               string        `json:"model"`
	Messages            []ChatMessage `json:"messages"`
	MaxTokens           *int          `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int          `json:"max_completion_tokens,omitempty"`
	Temperature         *float64      `json:"temperature,omitempty"`
}

// OpenAIProvider forwards completions to the OpenAI chat-completions API
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIProvider creates an OpenAI provider
func NewOpenAIProvider(apiKey, baseURL string, client *http.Client) *OpenAIProvider {
	return &OpenAIProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

// Name returns the provider label used in error envelopes
func (p *OpenAIProvider) Name() string { return "OpenAI" }

// usesCompletionTokenCap reports whether a model belongs to a family that
// only accepts the completion-token cap parameter.
func usesCompletionTokenCap(model string) bool {
	for _, family := range capOnlyFamilies {
		if strings.HasPrefix(model, family) {
			return true
		}
	}
	return false
}

// buildOpenAIRequest assembles the outbound OpenAI payload for a model. Newer
// families get max_completion_tokens and no temperature; everything else
// gets the legacy max_tokens plus a fixed temperature.
func buildOpenAIRequest(model string, messages []ChatMessage) openAIRequest {
	req := openAIRequest{Model: model, Messages: messages}
	if usesCompletionTokenCap(model) {
		cap := maxResponseTokens
		req.MaxCompletionTokens = &cap
	} else {
		cap := maxResponseTokens
		temp := defaultTemperature
		req.MaxTokens = &cap
		req.Temperature = &temp
	}
	return req
}

// Complete sends the request to OpenAI and normalizes the response
func (p *OpenAIProvider) Complete(req CompletionRequest) (*CompletionResponse, error) {
	if p.apiKey == "" {
		return nil, &CredentialError{Secret: "OPENAI_API_KEY"}
	}
	payload := buildOpenAIRequest(req.Model, req.Messages)
	return completeChat(p.client, p.baseURL+"/chat/completions", p.apiKey, p.Name(), payload)
}
