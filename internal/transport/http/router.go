package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clinicore/internal/gate"
	"clinicore/pkg/platform/middleware/metadata"
	"clinicore/pkg/platform/middleware/request"
	"clinicore/pkg/platform/middleware/requesttime"
)

// NewRouter wires the middleware chain and all endpoints. The gate runs
// after metadata extraction so its log lines carry client context, and
// before any protected handler.
func NewRouter(h *Handler, g *gate.Gate) http.Handler {
	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(g.Middleware)

	// Unprotected surface.
	r.Get("/healthz", h.HandleHealth)
	r.Get("/login", h.HandleLoginPage)
	r.Handle("/metrics", promhttp.Handler())

	// API namespace: excluded from the gate's redirect handling; callers
	// get status codes, not HTML.
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAPIAuth)
			r.Post("/logout", h.HandleLogout)
			r.Get("/activity", h.HandleActivity)
		})
	})

	// Protected pages are rendered elsewhere; the dashboard activity route
	// exists here because its data surface belongs to this core.
	r.Get("/dashboard/activity", h.HandleActivityPage)

	return r
}
