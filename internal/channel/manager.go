// Package channel owns the lifecycle of the single external messaging
// channel connection. The durable session row lets a restart resume the
// channel instead of re-authenticating; the manager is the only writer and
// enforces the status state machine in front of the store.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"clinicore/internal/audit"
	"clinicore/pkg/platform/sentinel"
)

// Connector abstracts the external messaging library. It owns the wire
// protocol and the meaning of the credential material; this package treats
// the blob as opaque bytes.
type Connector interface {
	// Resume re-establishes the channel from stored credential material.
	// Undecodable material is reported with sentinel.ErrCorrupt so the
	// manager can force re-authentication instead of crashing.
	Resume(ctx context.Context, credentialBlob []byte) error
	// Connect authenticates from scratch and returns fresh credential
	// material to persist.
	Connect(ctx context.Context) ([]byte, error)
	// Disconnect tears the channel down.
	Disconnect(ctx context.Context) error
}

// SessionStore is the persistence contract the manager writes through.
type SessionStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, status Status, credentialBlob []byte) error
	Clear(ctx context.Context) error
}

// Auditor records channel lifecycle actions.
type Auditor interface {
	Record(ctx context.Context, userID, action string, payload audit.Payload) audit.WriteResult
}

// systemUserID attributes channel lifecycle entries; the channel is
// process-wide, not owned by any principal.
const systemUserID = "system"

// Manager drives the channel through its lifecycle. One manager per
// process; status-change notifications may arrive concurrently from the
// connector, so internal state is mutex-guarded even though the store's
// upsert already prevents duplicate rows.
type Manager struct {
	mu      sync.Mutex
	status  Status
	store   SessionStore
	conn    Connector
	auditor Auditor
	logger  *slog.Logger
}

func NewManager(store SessionStore, conn Connector, auditor Auditor, logger *slog.Logger) *Manager {
	return &Manager{
		status:  StatusDisconnected,
		store:   store,
		conn:    conn,
		auditor: auditor,
		logger:  logger,
	}
}

// Status returns the current in-memory status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Start attempts to resume the channel from the persisted session. A
// missing row or one without credential material is treated as
// DISCONNECTED. Corrupt credential material degrades to EXPIRED, forcing
// re-authentication; it never crashes the process.
func (m *Manager) Start(ctx context.Context) error {
	session, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load channel session: %w", err)
	}
	if session == nil || len(session.CredentialBlob) == 0 {
		m.logger.InfoContext(ctx, "no resumable channel session, staying disconnected")
		return nil
	}

	m.mu.Lock()
	// The persisted status reflects the previous process; this one starts
	// its own attempt from DISCONNECTED or EXPIRED.
	if session.Status == StatusExpired {
		m.status = StatusExpired
	} else {
		m.status = StatusDisconnected
	}
	m.mu.Unlock()

	if err := m.transition(ctx, StatusConnecting, session.CredentialBlob); err != nil {
		return err
	}

	if err := m.conn.Resume(ctx, session.CredentialBlob); err != nil {
		if errors.Is(err, sentinel.ErrCorrupt) {
			m.logger.WarnContext(ctx, "stored channel credential is corrupt, forcing re-authentication")
			m.setStatus(StatusExpired)
			if saveErr := m.store.Save(ctx, StatusExpired, nil); saveErr != nil {
				return fmt.Errorf("persist expired channel session: %w", saveErr)
			}
			m.auditor.Record(ctx, systemUserID, audit.ActionChannelExpired, audit.Payload{"reason": "corrupt credential"})
			return nil
		}
		return fmt.Errorf("resume channel: %w", err)
	}

	if err := m.transition(ctx, StatusConnected, session.CredentialBlob); err != nil {
		return err
	}
	m.auditor.Record(ctx, systemUserID, audit.ActionChannelConnected, audit.Payload{"resumed": true})
	m.logger.InfoContext(ctx, "channel session resumed")
	return nil
}

// Authenticate establishes the channel from scratch (first run, or after
// expiry) and persists the fresh credential material.
func (m *Manager) Authenticate(ctx context.Context) error {
	if err := m.transition(ctx, StatusConnecting, nil); err != nil {
		return err
	}

	blob, err := m.conn.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect channel: %w", err)
	}

	if err := m.transition(ctx, StatusConnected, blob); err != nil {
		return err
	}
	m.auditor.Record(ctx, systemUserID, audit.ActionChannelConnected, audit.Payload{"resumed": false})
	return nil
}

// MarkExpired records external credential invalidation.
func (m *Manager) MarkExpired(ctx context.Context) error {
	if err := m.transition(ctx, StatusExpired, nil); err != nil {
		return err
	}
	m.auditor.Record(ctx, systemUserID, audit.ActionChannelExpired, audit.Payload{"reason": "invalidated externally"})
	return nil
}

// Logout disconnects explicitly and discards the credential material.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	current := m.status
	m.mu.Unlock()
	if !current.CanTransition(StatusDisconnected) {
		return fmt.Errorf("logout from %s: %w", current, sentinel.ErrInvalidState)
	}

	if err := m.conn.Disconnect(ctx); err != nil {
		m.logger.WarnContext(ctx, "channel disconnect failed, clearing session anyway", "error", err)
	}
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear channel session: %w", err)
	}
	m.setStatus(StatusDisconnected)
	m.auditor.Record(ctx, systemUserID, audit.ActionChannelLogout, nil)
	return nil
}

// transition validates and applies one state-machine step, persisting the
// new status. Illegal transitions are rejected with sentinel.ErrInvalidState
// so callers can log the attempt.
func (m *Manager) transition(ctx context.Context, next Status, blob []byte) error {
	m.mu.Lock()
	current := m.status
	if !current.CanTransition(next) {
		m.mu.Unlock()
		return fmt.Errorf("channel transition %s -> %s: %w", current, next, sentinel.ErrInvalidState)
	}
	m.status = next
	m.mu.Unlock()

	if err := m.store.Save(ctx, next, blob); err != nil {
		return fmt.Errorf("persist channel status %s: %w", next, err)
	}
	return nil
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}
