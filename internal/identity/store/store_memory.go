package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clinicore/internal/identity"
	"clinicore/pkg/platform/sentinel"
)

// InMemory is a map-backed SessionStore for tests and single-node development.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string]identity.LoginSession
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[string]identity.LoginSession)}
}

func (s *InMemory) Put(_ context.Context, session identity.LoginSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = time.Now().Add(ttl)
	}
	s.sessions[session.JTI] = session
	return nil
}

func (s *InMemory) Get(_ context.Context, jti string) (*identity.LoginSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[jti]
	if !ok || time.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("login session %s: %w", jti, sentinel.ErrNotFound)
	}
	return &session, nil
}

func (s *InMemory) Delete(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, jti)
	return nil
}
