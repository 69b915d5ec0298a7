package httptransport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"clinicore/internal/audit"
	dErrors "clinicore/pkg/domain-errors"
	"clinicore/pkg/platform/httputil"
	"clinicore/pkg/requestcontext"
)

// unknownUserName is shown when an audit entry references a principal the
// directory no longer knows. A dangling reference degrades, never crashes.
const unknownUserName = "unknown user"

type activityEntry struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	DisplayName string        `json:"display_name"`
	Action      string        `json:"action"`
	Payload     audit.Payload `json:"payload,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

type activityResponse struct {
	Entries []activityEntry `json:"entries"`
}

// HandleActivity returns the role-scoped activity page as JSON.
// Scoping happens inside the audit service; this handler never filters.
func (h *Handler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := requestcontext.Principal(ctx)
	if principal == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	limit := audit.MaxPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	entries, err := h.auditor.Query(ctx, *principal, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "activity query failed",
			"user_id", principal.ID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "activity query failed", err))
		return
	}

	resp := activityResponse{Entries: make([]activityEntry, 0, len(entries))}
	names := map[string]string{}
	for _, e := range entries {
		name, ok := names[e.UserID]
		if !ok {
			name = h.lookupDisplayName(ctx, e.UserID)
			names[e.UserID] = name
		}
		resp.Entries = append(resp.Entries, activityEntry{
			ID:          e.ID.String(),
			UserID:      e.UserID,
			DisplayName: name,
			Action:      e.Action,
			Payload:     e.Payload,
			CreatedAt:   e.CreatedAt,
		})
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleActivityPage is the dashboard route behind the gate. The page shell
// is rendered by the presentation layer; the data comes from /api/activity.
func (h *Handler) HandleActivityPage(w http.ResponseWriter, r *http.Request) {
	access := requestcontext.Access(r.Context())
	if access.Principal == nil {
		// The gate guarantees a principal on this route; reaching here
		// without one means the route was mounted outside the gate.
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<!doctype html><title>Activity</title><div id=\"activity\" data-path=\"" + access.Path + "\"></div>"))
}

func (h *Handler) lookupDisplayName(ctx context.Context, userID string) string {
	name, err := h.directory.DisplayName(ctx, userID)
	if err != nil || name == "" {
		return unknownUserName
	}
	return name
}
