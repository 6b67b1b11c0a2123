package proxy

import (
	"net/http"
	"strings"

	"multichat/internal/config"
	"multichat/internal/logger"

	"github.com/sirupsen/logrus"
)

// Provider is one upstream chat-completion API
type Provider interface {
	Name() string
	Complete(req CompletionRequest) (*CompletionResponse, error)
}

// Route pairs a model predicate with the provider that serves it
type Route struct {
	Matches  func(model string) bool
	Provider Provider
}

// Dispatcher selects a provider for each request by walking an ordered
// route list; the first match wins. Adding a provider is adding an entry.
// The dispatcher holds no per-request state.
type Dispatcher struct {
	routes []Route
}

func hasPrefix(prefix string) func(string) bool {
	return func(model string) bool {
		return strings.HasPrefix(model, prefix)
	}
}

func anyModel(string) bool { return true }

// NewDispatcher builds the production route table: grok-prefixed models go
// to xAI, everything else to OpenAI.
func NewDispatcher(cfg config.ProviderConfig) *Dispatcher {
	client := &http.Client{}
	return NewDispatcherWithRoutes(
		Route{Matches: hasPrefix("grok"), Provider: NewXAIProvider(cfg.XAIAPIKey, cfg.XAIBaseURL, client)},
		Route{Matches: anyModel, Provider: NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, client)},
	)
}

// NewDispatcherWithRoutes builds a dispatcher from an explicit route list;
// predicates are tried in order.
func NewDispatcherWithRoutes(routes ...Route) *Dispatcher {
	return &Dispatcher{routes: routes}
}

// Complete validates the request and forwards it to the matching provider
func (d *Dispatcher) Complete(req CompletionRequest) (*CompletionResponse, error) {
	if req.Model == "" || len(req.Messages) == 0 {
		return nil, ErrInvalidRequest
	}

	for _, rt := range d.routes {
		if !rt.Matches(req.Model) {
			continue
		}
		logger.Log.WithFields(logrus.Fields{
			"provider":      rt.Provider.Name(),
			"model":         req.Model,
			"message_count": len(req.Messages),
		}).Info("Dispatching completion request")
		return rt.Provider.Complete(req)
	}

	// Unreachable with the production table's catch-all route
	return nil, ErrInvalidRequest
}
