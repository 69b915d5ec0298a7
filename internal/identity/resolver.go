// Package identity resolves inbound requests to authenticated principals.
//
// Credential verification at login time is an external collaborator
// (Verifier); this package only turns an already-issued credential back into
// a Principal. Resolution is fail-closed: anything that cannot be verified
// end to end comes back as anonymous, never as an error.
package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clinicore/internal/token"
	"clinicore/pkg/domain"
)

// CookieName carries the login token for browser requests. API clients may
// use an Authorization bearer header instead; the header wins when both are
// present.
const CookieName = "clinicore_session"

// SessionChecker is the subset of the login-session store the resolver needs.
type SessionChecker interface {
	Get(ctx context.Context, jti string) (*LoginSession, error)
}

// Verifier checks primary credentials at login. Implemented by the external
// credential collaborator; out of scope here beyond the contract.
type Verifier interface {
	// Verify returns the account matching the credentials, or an
	// unauthorized domain error. Role may be empty; callers must apply the
	// least-privilege default.
	Verify(ctx context.Context, username, password string) (*Account, error)
}

// Directory looks up display data for principals referenced by audit
// entries. A missing user is not an error at this layer; callers degrade to
// an "unknown user" display.
type Directory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Account is what the external credential collaborator knows about a user.
type Account struct {
	ID          string
	DisplayName string
	Role        string
}

// Resolver reconstructs a Principal from a request credential.
type Resolver struct {
	tokens   *token.Service
	sessions SessionChecker
	logger   *slog.Logger
}

func NewResolver(tokens *token.Service, sessions SessionChecker, logger *slog.Logger) *Resolver {
	return &Resolver{tokens: tokens, sessions: sessions, logger: logger}
}

// Resolve produces the authenticated principal behind r, or nil for
// anonymous. Malformed, expired, or revoked credentials all resolve to nil;
// so do infrastructure failures, because an unverifiable caller must not be
// treated as authenticated.
func (rs *Resolver) Resolve(r *http.Request) *domain.Principal {
	raw := CredentialFromRequest(r)
	if raw == "" {
		return nil
	}

	claims, err := rs.tokens.Validate(raw)
	if err != nil {
		return nil
	}

	session, err := rs.sessions.Get(r.Context(), claims.ID)
	if err != nil {
		// Covers both "revoked/never existed" and "store unreachable".
		rs.logger.DebugContext(r.Context(), "login session lookup failed", "error", err)
		return nil
	}
	if session.UserID != claims.UserID || time.Now().After(session.ExpiresAt) {
		return nil
	}

	return &domain.Principal{
		ID:          claims.UserID,
		DisplayName: claims.DisplayName,
		Role:        domain.ParseRole(claims.Role),
	}
}

// CredentialFromRequest extracts the raw login token from the bearer
// header or the session cookie. Exposed for handlers that need to act on
// the credential itself (logout revocation).
func CredentialFromRequest(r *http.Request) string {
	const bearerPrefix = "Bearer "
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix); ok {
		return after
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}
