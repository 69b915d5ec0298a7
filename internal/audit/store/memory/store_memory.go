package memory

import (
	"context"
	"sort"
	"sync"

	"clinicore/internal/audit"
)

// InMemoryStore keeps entries in a slice, assigning insertion numbers so
// ordering matches the PostgreSQL store exactly.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
	nextSeq int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.nextSeq = 0
}

// Append writes one entry. Duplicate IDs are ignored so a retried write
// cannot double-record an action, matching the PostgreSQL store.
func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.ID == entry.ID {
			return nil
		}
	}
	s.nextSeq++
	entry.Seq = s.nextSeq
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, scope audit.Scope, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, restricted := scope.UserID()

	var visible []audit.Entry
	for _, e := range s.entries {
		if restricted && e.UserID != userID {
			continue
		}
		visible = append(visible, e)
	}

	// Most recent first; later insertions win CreatedAt ties.
	sort.Slice(visible, func(i, j int) bool {
		if !visible[i].CreatedAt.Equal(visible[j].CreatedAt) {
			return visible[i].CreatedAt.After(visible[j].CreatedAt)
		}
		return visible[i].Seq > visible[j].Seq
	})

	if limit > 0 && len(visible) > limit {
		visible = visible[:limit]
	}
	return visible, nil
}
