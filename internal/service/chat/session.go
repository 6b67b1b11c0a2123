package chat

import (
	"sync"

	"multichat/internal/config"
	"multichat/internal/proxy"
	"multichat/internal/repository/db"
)

// SessionManager hands out one chat session per user, creating it on
// first use.
type SessionManager struct {
	database  db.Database
	completer proxy.Completer
	models    *config.ModelCatalog

	mu       sync.Mutex
	sessions map[string]*Orchestrator
}

func NewSessionManager(database db.Database, completer proxy.Completer, models *config.ModelCatalog) *SessionManager {
	return &SessionManager{
		database:  database,
		completer: completer,
		models:    models,
		sessions:  make(map[string]*Orchestrator),
	}
}

// Session returns the user's chat session, creating one if needed.
func (m *SessionManager) Session(userID string) *Orchestrator {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s := NewOrchestrator(m.database, m.completer, m.models, userID)
	m.sessions[userID] = s
	return s
}

// Drop discards the user's session. The next Session call starts fresh.
func (m *SessionManager) Drop(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
