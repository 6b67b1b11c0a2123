package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"multichat/internal/logger"
)

// Handler exposes the completion proxy over HTTP. Failures never escape as
// raw errors; every outcome is serialized into the success or failure
// envelope.
type Handler struct {
	completer Completer
}

// NewHandler creates a proxy HTTP handler
func NewHandler(completer Completer) *Handler {
	return &Handler{completer: completer}
}

// HandleCompletion serves POST requests against the proxy contract and
// answers OPTIONS preflights with an empty 200.
func (h *Handler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		h.writeError(w, errors.New("method not allowed"), http.StatusMethodNotAllowed)
		return
	}

	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	resp, err := h.completer.Complete(req)
	if err != nil {
		h.writeError(w, err, 0)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError maps an error to the failure envelope. statusOverride forces
// a status; otherwise the error's own classification decides.
func (h *Handler) writeError(w http.ResponseWriter, err error, statusOverride int) {
	env := NewErrorEnvelope(err)
	if statusOverride != 0 {
		env.StatusCode = statusOverride
	}

	logger.Log.WithError(err).WithField("status_code", env.StatusCode).Warn("Completion proxy request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.StatusCode)
	json.NewEncoder(w).Encode(env)
}

// NewErrorEnvelope classifies an error into the uniform failure envelope:
// invalid requests are 400, upstream failures keep the upstream status and
// payload, everything else (including missing credentials) is a 500 with
// null details.
func NewErrorEnvelope(err error) ErrorEnvelope {
	env := ErrorEnvelope{
		Error:      err.Error(),
		StatusCode: http.StatusInternalServerError,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	var upstream *UpstreamError
	switch {
	case errors.Is(err, ErrInvalidRequest):
		env.StatusCode = http.StatusBadRequest
	case errors.As(err, &upstream):
		env.StatusCode = upstream.StatusCode
		env.Details = upstream.Details
	}

	return env
}
