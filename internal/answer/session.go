package answer

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Session identifies one query and owns its cancellation.
type Session struct {
	ID     string
	Query  string
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *Session) Context() context.Context { return s.ctx }

// Cancel stops the session's stream at its next fragment boundary.
func (s *Session) Cancel() { s.cancel() }

// Sessions hands out query sessions so that at most one is live. Beginning
// a new session cancels the previous one, and results tagged with a stale
// ID can be discarded with IsCurrent.
type Sessions struct {
	mu      sync.Mutex
	current *Session
}

func (m *Sessions) Begin(parent context.Context, query string) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{ID: uuid.NewString(), Query: query, ctx: ctx, cancel: cancel}

	m.mu.Lock()
	prev := m.current
	m.current = s
	m.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
	return s
}

// End cancels the session with the given ID if it is still current.
func (m *Sessions) End(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.ID == id {
		m.current.cancel()
		m.current = nil
	}
}

func (m *Sessions) IsCurrent(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.ID == id
}

func (m *Sessions) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
