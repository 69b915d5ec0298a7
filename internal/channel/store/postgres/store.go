package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clinicore/internal/channel"
)

// Store persists the singleton channel session row.
//
// Schema (managed externally):
//
//	CREATE TABLE channel_sessions (
//	    channel_id      TEXT PRIMARY KEY,
//	    credential_blob BYTEA,
//	    status          TEXT NOT NULL,
//	    updated_at      TIMESTAMPTZ NOT NULL
//	);
type Store struct {
	db        *sql.DB
	channelID string
	clock     func() time.Time
}

// Option configures a Store instance.
type Option func(*Store)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(db *sql.DB, channelID string, opts ...Option) *Store {
	s := &Store{db: db, channelID: channelID, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the persisted session, or nil when no row exists yet.
func (s *Store) Load(ctx context.Context) (*channel.Session, error) {
	query := `
		SELECT channel_id, credential_blob, status, updated_at
		FROM channel_sessions
		WHERE channel_id = $1
	`
	session := channel.Session{}
	var status string
	err := s.db.QueryRowContext(ctx, query, s.channelID).Scan(
		&session.ID,
		&session.CredentialBlob,
		&status,
		&session.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load channel session: %w", err)
	}
	session.Status = channel.Status(status)
	return &session, nil
}

// Save upserts the singleton row. The ON CONFLICT clause keyed on the
// channel identity is what prevents duplicates under concurrent writers;
// the last writer's status, blob, and updated_at win.
func (s *Store) Save(ctx context.Context, status channel.Status, credentialBlob []byte) error {
	if !status.Valid() {
		return fmt.Errorf("save channel session: unknown status %q", status)
	}
	query := `
		INSERT INTO channel_sessions (channel_id, credential_blob, status, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel_id) DO UPDATE SET
			credential_blob = EXCLUDED.credential_blob,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, s.channelID, credentialBlob, string(status), s.clock())
	if err != nil {
		return fmt.Errorf("save channel session: %w", err)
	}
	return nil
}

// Clear records an explicit logout.
func (s *Store) Clear(ctx context.Context) error {
	return s.Save(ctx, channel.StatusDisconnected, nil)
}
