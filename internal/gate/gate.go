// Package gate intercepts inbound requests before they reach protected
// resources. Browsers without a valid principal are redirected to the login
// page; everything the matcher classifies as unprotected passes straight
// through. The gate is fail-closed: a resolution failure of any kind is
// treated as unauthenticated.
package gate

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"

	"clinicore/internal/gate/metrics"
	"clinicore/pkg/domain"
	request "clinicore/pkg/platform/middleware/request"
	"clinicore/pkg/requestcontext"
)

var tracer = otel.Tracer("clinicore/gate")

// PrincipalResolver is the identity collaborator. Implementations return nil
// for anonymous callers and must not panic on malformed credentials; the
// gate still guards against it.
type PrincipalResolver interface {
	Resolve(r *http.Request) *domain.Principal
}

// Gate guards protected path prefixes.
type Gate struct {
	paths     *PathSet
	resolver  PrincipalResolver
	loginPath string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func New(paths *PathSet, resolver PrincipalResolver, loginPath string, logger *slog.Logger, m *metrics.Metrics) *Gate {
	return &Gate{
		paths:     paths,
		resolver:  resolver,
		loginPath: loginPath,
		logger:    logger,
		metrics:   m,
	}
}

// Middleware enforces the gate for every request on the router.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if !g.paths.Protected(path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx, span := tracer.Start(r.Context(), "gate.guard")
		principal := g.resolveSafely(r.WithContext(ctx))
		span.End()

		if principal == nil {
			requestID := request.GetRequestID(ctx)
			g.logger.WarnContext(ctx, "unauthenticated access to protected path",
				"path", path,
				"request_id", requestID,
			)
			if g.metrics != nil {
				g.metrics.IncrementRedirected()
			}
			// 303 forces a GET of the login page even when the original
			// request was a form POST. The original request is discarded.
			http.Redirect(w, r, g.loginPath, http.StatusSeeOther)
			return
		}

		if g.metrics != nil {
			g.metrics.IncrementAllowed()
		}
		ctx = requestcontext.WithAccess(ctx, requestcontext.AccessInfo{
			Principal: principal,
			Path:      path,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveSafely converts a panicking resolver into an anonymous result. An
// unverifiable caller must never be let through.
func (g *Gate) resolveSafely(r *http.Request) (principal *domain.Principal) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.ErrorContext(r.Context(), "identity resolution panicked", "panic", rec)
			principal = nil
		}
	}()
	return g.resolver.Resolve(r)
}
