package proxy

import "net/http"

type xaiRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// XAIProvider forwards completions to the xAI chat-completions API. Unlike
// OpenAI, xAI takes model and messages as-is with no extra parameters.
type XAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewXAIProvider creates an xAI provider
func NewXAIProvider(apiKey, baseURL string, client *http.Client) *XAIProvider {
	return &XAIProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

// Name returns the provider label used in error envelopes
func (p *XAIProvider) Name() string { return "xAI" }

// Complete sends the request to xAI and normalizes the response
func (p *XAIProvider) Complete(req CompletionRequest) (*CompletionResponse, error) {
	if p.apiKey == "" {
		return nil, &CredentialError{Secret: "XAI_API_KEY"}
	}
	payload := xaiRequest{Model: req.Model, Messages: req.Messages}
	return completeChat(p.client, p.baseURL+"/chat/completions", p.apiKey, p.Name(), payload)
}
