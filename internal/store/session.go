// Package store holds the in-memory session registry.
package store

import (
	"sync"

	"github.com/grubstreet/papertrader/internal/domain"
	"github.com/grubstreet/papertrader/internal/service"
)

// SessionStore is a thread-safe in-memory registry of game sessions
// keyed by session id.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*service.Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*service.Session)}
}

// Put registers a session under its id.
func (s *SessionStore) Put(sess *service.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = sess
}

// Get retrieves a session by id. It returns domain.ErrSessionNotFound
// if no session exists under the id.
func (s *SessionStore) Get(id string) (*service.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// Delete removes a session. It returns domain.ErrSessionNotFound if no
// session exists under the id.
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// List returns all registered sessions in unspecified order.
func (s *SessionStore) List() []*service.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*service.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Count returns the number of registered sessions.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
