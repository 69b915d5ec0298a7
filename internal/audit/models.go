package audit

import (
	"time"

	"github.com/google/uuid"
)

// Payload is arbitrary structured metadata attached to an entry.
type Payload map[string]any

// Entry is an immutable record of one completed action. Entries are
// append-only; no update or delete exists in this package's contract.
type Entry struct {
	ID        uuid.UUID
	UserID    string
	Action    string
	Payload   Payload
	CreatedAt time.Time

	// Seq is the store-assigned insertion number. It breaks CreatedAt ties
	// so display ordering is total.
	Seq int64
}

// Actions recorded by this core. Domain packages add their own strings; the
// constants here are the ones this repository emits itself.
const (
	ActionLogin            = "auth.login"
	ActionLogout           = "auth.logout"
	ActionChannelConnected = "channel.connected"
	ActionChannelExpired   = "channel.expired"
	ActionChannelLogout    = "channel.logout"
	ActionActivityViewed   = "activity.viewed"
)

// MaxPageSize bounds query results. Requests above the ceiling are clamped,
// not rejected.
const MaxPageSize = 20
