package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"clinicore/internal/audit"
	"clinicore/internal/identity"
	"clinicore/internal/token"
	"clinicore/pkg/domain"
	dErrors "clinicore/pkg/domain-errors"
	"clinicore/pkg/platform/httputil"
	"clinicore/pkg/requestcontext"
)

// AuditService is the audit surface the transport layer consumes.
type AuditService interface {
	Record(ctx context.Context, userID, action string, payload audit.Payload) audit.WriteResult
	Query(ctx context.Context, principal domain.Principal, limit int) ([]audit.Entry, error)
}

// SessionWriter is the login-session surface the auth handlers consume.
type SessionWriter interface {
	Put(ctx context.Context, session identity.LoginSession, ttl time.Duration) error
	Delete(ctx context.Context, jti string) error
}

// HealthCheck probes one dependency (Postgres, Redis).
type HealthCheck func(ctx context.Context) error

// Handler is the thin HTTP layer. It delegates to domain services without
// embedding business logic so transport concerns remain isolated.
type Handler struct {
	verifier   identity.Verifier
	directory  identity.Directory
	resolver   *identity.Resolver
	tokens     *token.Service
	sessions   SessionWriter
	auditor    AuditService
	logger     *slog.Logger
	sessionTTL time.Duration
	health     []HealthCheck
}

func NewHandler(
	verifier identity.Verifier,
	directory identity.Directory,
	resolver *identity.Resolver,
	tokens *token.Service,
	sessions SessionWriter,
	auditor AuditService,
	logger *slog.Logger,
	sessionTTL time.Duration,
	health ...HealthCheck,
) *Handler {
	return &Handler{
		verifier:   verifier,
		directory:  directory,
		resolver:   resolver,
		tokens:     tokens,
		sessions:   sessions,
		auditor:    auditor,
		logger:     logger,
		sessionTTL: sessionTTL,
		health:     health,
	}
}

// RequireAPIAuth guards /api routes. Unlike the gate, it answers JSON 401;
// an API client never receives an HTML redirect.
func (h *Handler) RequireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := h.resolver.Resolve(r)
		if principal == nil {
			ctx := r.Context()
			h.logger.WarnContext(ctx, "unauthorized API access",
				"path", r.URL.Path,
				"request_id", requestcontext.RequestID(ctx),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}

		ctx := requestcontext.WithAccess(r.Context(), requestcontext.AccessInfo{
			Principal: principal,
			Path:      r.URL.Path,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HandleHealth reports readiness of the durable stores.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	for _, check := range h.health {
		if check == nil {
			continue
		}
		if err := check(ctx); err != nil {
			h.logger.ErrorContext(ctx, "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleLoginPage serves the login target the gate redirects to. The real
// page is rendered by the presentation layer; this endpoint only guarantees
// the redirect lands on a 200.
func (h *Handler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<!doctype html><title>Sign in</title><h1>Sign in</h1>"))
}
