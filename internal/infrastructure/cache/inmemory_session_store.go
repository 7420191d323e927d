package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/exchange/internal/domain/exchange"
)

// InMemorySessionStore keeps exchange sessions in process memory.
// This is suitable for single-instance deployments and testing.
// Expired sessions are dropped whenever a session is saved.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]exchange.ExchangeSession
	now      func() time.Time
}

// NewInMemorySessionStore creates an empty store
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]exchange.ExchangeSession),
		now:      time.Now,
	}
}

// Save stores a copy of session and prunes expired ones
func (s *InMemorySessionStore) Save(ctx context.Context, session *exchange.ExchangeSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(s.now())
	s.sessions[session.ID] = *session
	return nil
}

// Get returns a copy of the stored session. Expired sessions are still
// returned; the caller decides what expiry means.
func (s *InMemorySessionStore) Get(ctx context.Context, id string) (*exchange.ExchangeSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, exchange.ErrSessionNotFound
	}
	return &session, nil
}

// Delete removes the session; unknown ids are ignored
func (s *InMemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Close is a no-op; the store holds no background resources
func (s *InMemorySessionStore) Close() error {
	return nil
}

// prune must be called with mu held.
func (s *InMemorySessionStore) prune(now time.Time) int {
	removed := 0
	for id, session := range s.sessions {
		if session.IsExpired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Size returns the number of stored sessions (for testing/monitoring)
func (s *InMemorySessionStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ exchange.SessionStore = (*InMemorySessionStore)(nil)
