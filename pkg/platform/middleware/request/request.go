package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"clinicore/pkg/requestcontext"
)

// headerRequestID is honored when an upstream proxy already assigned an ID.
const headerRequestID = "X-Request-Id"

// RequestID assigns each request a unique ID and echoes it back in the
// response headers so log lines and client reports can be correlated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, reqID)

		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
