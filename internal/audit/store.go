package audit

import "context"

// Scope is a store-level visibility predicate. It can only be constructed
// through ScopeAll or ScopeUser, which is what makes cross-principal reads
// structurally impossible for non-administrators: there is no way to hand a
// store a caller-supplied user filter without going through the service's
// scoping function.
type Scope struct {
	userID string
	all    bool
}

// ScopeAll returns the unrestricted scope (administrator queries).
func ScopeAll() Scope { return Scope{all: true} }

// ScopeUser returns a scope restricted to one principal's own entries.
func ScopeUser(userID string) Scope { return Scope{userID: userID} }

// UserID returns the restricting user ID; ok is false for the
// unrestricted scope.
func (s Scope) UserID() (userID string, ok bool) {
	return s.userID, !s.all
}

// Store is the audit persistence contract. Implementations live in the
// store subpackages; keeping the contract beside the domain types lets
// them depend on this package without a cycle.
//
//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store
type Store interface {
	// Append writes one entry. Entries are never updated or deleted.
	Append(ctx context.Context, entry Entry) error
	// List returns the most recent entries visible to scope, ordered by
	// CreatedAt descending with ties broken by insertion order, at most
	// limit entries.
	List(ctx context.Context, scope Scope, limit int) ([]Entry, error)
}
