package domain

// Role scopes what a principal may see and do.
//
// Usage: construct via ParseRole at trust boundaries; direct casting bypasses
// the least-privilege fallback.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
)

var validRoles = map[Role]bool{
	RoleAdmin: true,
	RoleStaff: true,
}

// ParseRole maps external input to a Role. Unknown, empty, or ambiguous
// input degrades to RoleStaff: an upstream that forgets to set a role must
// never produce an administrator.
func ParseRole(s string) Role {
	r := Role(s)
	if !validRoles[r] {
		return RoleStaff
	}
	return r
}

// Principal is the authenticated identity behind a request. Provisioned
// externally; read-only to this core.
type Principal struct {
	ID          string
	DisplayName string
	Role        Role
}

// IsAdmin reports whether the principal holds the administrator role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
