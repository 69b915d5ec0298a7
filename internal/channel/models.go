package channel

import "time"

// Status is the connectivity state of the external messaging channel.
type Status string

const (
	StatusDisconnected Status = "DISCONNECTED"
	StatusConnecting   Status = "CONNECTING"
	StatusConnected    Status = "CONNECTED"
	StatusExpired      Status = "EXPIRED"
)

var validStatuses = map[Status]bool{
	StatusDisconnected: true,
	StatusConnecting:   true,
	StatusConnected:    true,
	StatusExpired:      true,
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool { return validStatuses[s] }

// legalTransitions is the single source of truth for the lifecycle.
// CONNECTED is only reachable through CONNECTING; EXPIRED can only retry.
var legalTransitions = map[Status]map[Status]bool{
	StatusDisconnected: {StatusConnecting: true},
	StatusConnecting:   {StatusConnected: true},
	StatusConnected:    {StatusExpired: true, StatusDisconnected: true},
	StatusExpired:      {StatusConnecting: true},
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	return legalTransitions[s][next]
}

// Session is the persisted lifecycle state of one external messaging
// channel connection. At most one live row exists per logical channel;
// every write is an upsert keyed by the channel identity.
type Session struct {
	ID             string
	CredentialBlob []byte
	Status         Status
	UpdatedAt      time.Time
}
