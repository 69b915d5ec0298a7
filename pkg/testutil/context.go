package testutil

import (
	"net/http"

	"clinicore/pkg/domain"
	"clinicore/pkg/requestcontext"
)

// WithPrincipal attaches an authenticated principal to the request context,
// simulating what the access gate does for requests it lets through.
func WithPrincipal(req *http.Request, principal domain.Principal) *http.Request {
	ctx := requestcontext.WithAccess(req.Context(), requestcontext.AccessInfo{
		Principal: &principal,
		Path:      req.URL.Path,
	})
	return req.WithContext(ctx)
}

// WithClientMetadata attaches client IP and user agent to the request
// context, simulating the metadata middleware.
func WithClientMetadata(req *http.Request, clientIP, userAgent string) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent)
	return req.WithContext(ctx)
}
