// Package store persists the singleton channel session so a process restart
// resumes the external channel instead of re-authenticating from scratch.
package store

import (
	"context"

	"clinicore/internal/channel"
)

// Store is the channel-session persistence contract.
//
// Save must be an idempotent upsert keyed by the channel identity: calling
// it twice with identical arguments leaves exactly one row, and concurrent
// writers converge to last-write-wins rather than duplicating rows.
//
//go:generate mockgen -source=store.go -destination=../mocks/mocks.go -package=mocks Store
type Store interface {
	// Load returns the persisted session, or nil when none exists yet
	// (first-ever run); callers treat nil identically to DISCONNECTED.
	Load(ctx context.Context) (*channel.Session, error)
	// Save upserts the singleton row with the given status and credential
	// material. A nil blob keeps existing semantics simple: the stored blob
	// is replaced, not merged.
	Save(ctx context.Context, status channel.Status, credentialBlob []byte) error
	// Clear records an explicit logout: status DISCONNECTED, blob discarded.
	Clear(ctx context.Context) error
}
