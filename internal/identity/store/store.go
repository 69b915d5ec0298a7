// Package store persists login sessions. Stores are interface-driven so the
// resolver and handlers stay testable without a live Redis.
package store

import (
	"context"
	"time"

	"clinicore/internal/identity"
)

// SessionStore keeps server-side login sessions keyed by token jti.
type SessionStore interface {
	Put(ctx context.Context, session identity.LoginSession, ttl time.Duration) error
	// Get returns sentinel.ErrNotFound (wrapped) when no session exists.
	Get(ctx context.Context, jti string) (*identity.LoginSession, error)
	Delete(ctx context.Context, jti string) error
}
