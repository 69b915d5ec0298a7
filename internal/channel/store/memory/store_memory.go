package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clinicore/internal/channel"
)

// InMemoryStore keeps the singleton session in memory for tests and
// single-node development.
type InMemoryStore struct {
	mu        sync.Mutex
	channelID string
	session   *channel.Session
}

func NewInMemoryStore(channelID string) *InMemoryStore {
	return &InMemoryStore{channelID: channelID}
}

func (s *InMemoryStore) Load(_ context.Context) (*channel.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil
	}
	copied := *s.session
	copied.CredentialBlob = append([]byte(nil), s.session.CredentialBlob...)
	return &copied, nil
}

func (s *InMemoryStore) Save(_ context.Context, status channel.Status, credentialBlob []byte) error {
	if !status.Valid() {
		return fmt.Errorf("save channel session: unknown status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &channel.Session{
		ID:             s.channelID,
		CredentialBlob: append([]byte(nil), credentialBlob...),
		Status:         status,
		UpdatedAt:      time.Now(),
	}
	return nil
}

func (s *InMemoryStore) Clear(ctx context.Context) error {
	return s.Save(ctx, channel.StatusDisconnected, nil)
}
