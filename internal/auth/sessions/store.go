package sessions

import (
	"context"
	"sync"
)

// InMemoryStore implements SessionStore with a single in-memory slot. State
// does not survive a restart; intended for tests and ephemeral runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	session *Session
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Read returns the stored session, or (nil, nil) when the slot is empty
func (s *InMemoryStore) Read(ctx context.Context) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return nil, nil
	}

	// copy so callers cannot mutate the slot behind the store's back
	session := *s.session
	if s.session.User != nil {
		user := *s.session.User
		session.User = &user
	}
	return &session, nil
}

// Write overwrites the slot with the given session
func (s *InMemoryStore) Write(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *session
	if session.User != nil {
		user := *session.User
		stored.User = &user
	}
	s.session = &stored
	return nil
}

// Clear empties the slot
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	return nil
}
