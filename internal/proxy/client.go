package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Error is a proxy failure envelope carried back to the caller as an error
type Error struct {
	Envelope ErrorEnvelope
}

func (e *Error) Error() string {
	return e.Envelope.Error
}

// Client invokes the completion proxy over HTTP. It satisfies Completer so
// the orchestrator stays independent of how the proxy is reached.
type Client struct {
	url    string
	client *http.Client
}

var _ Completer = (*Client)(nil)

// NewClient creates a proxy client for the given endpoint URL
func NewClient(url string) *Client {
	return &Client{url: url, client: &http.Client{}}
}

// Complete posts the request to the proxy endpoint. A failure envelope is
// returned as a *Error so callers keep access to status and details.
func (c *Client) Complete(req CompletionRequest) (*CompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error marshaling proxy request: %w", err)
	}

	resp, err := c.client.Post(c.url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error calling completion proxy: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading proxy response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var env ErrorEnvelope
		if err := json.Unmarshal(data, &env); err == nil && env.Error != "" {
			return nil, &Error{Envelope: env}
		}
		return nil, fmt.Errorf("proxy returned status %d: %s", resp.StatusCode, string(data))
	}

	var out CompletionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("error decoding proxy response: %w", err)
	}

	return &out, nil
}
