package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"multichat/internal/logger"

	"github.com/sirupsen/logrus"
)

// chatCompletionResponse is the shape both providers answer with; only the
// fields the envelope needs are decoded.
type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
}

// completeChat posts a chat-completions payload and normalizes the answer.
// A non-2xx status becomes an UpstreamError carrying the response body
// verbatim. A 2xx with no choices yields an empty GeneratedText, not an
// error.
func completeChat(client *http.Client, url, apiKey, provider string, payload interface{}) (*CompletionResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling %s request: %w", provider, err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating %s request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request to %s: %w", provider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading %s response: %w", provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Log.WithFields(logrus.Fields{
			"provider":    provider,
			"status_code": resp.StatusCode,
		}).Warn("Upstream provider returned an error")
		return nil, &UpstreamError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    upstreamErrorMessage(data),
			Details:    rawDetails(data),
		}
	}

	var upstream chatCompletionResponse
	if err := json.Unmarshal(data, &upstream); err != nil {
		return nil, fmt.Errorf("error decoding %s response: %w", provider, err)
	}

	out := &CompletionResponse{
		Model: upstream.Model,
		Usage: upstream.Usage,
	}
	if len(upstream.Choices) > 0 {
		out.GeneratedText = upstream.Choices[0].Message.Content
	}

	logger.Log.WithFields(logrus.Fields{
		"provider":       provider,
		"served_model":   upstream.Model,
		"content_length": len(out.GeneratedText),
	}).Debug("Upstream call succeeded")

	return out, nil
}

// upstreamErrorMessage digs the human-readable message out of a provider
// error body; providers use either {"error":{"message":...}} or
// {"error":"..."}.
func upstreamErrorMessage(body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Error) > 0 {
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
		var s string
		if err := json.Unmarshal(payload.Error, &s); err == nil && s != "" {
			return s
		}
	}
	return "request failed"
}

// rawDetails keeps the upstream body as-is when it is JSON, otherwise
// wraps it as a JSON string so the envelope stays well-formed.
func rawDetails(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return json.RawMessage(quoted)
}
