package httptransport

import (
	"net/http"
	"time"

	"clinicore/internal/audit"
	"clinicore/internal/identity"
	dErrors "clinicore/pkg/domain-errors"
	"clinicore/pkg/platform/httputil"
	"clinicore/pkg/requestcontext"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string `json:"token"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// HandleLogin verifies credentials through the external collaborator, mints
// a login token, and stores the server-side session that makes logout
// immediate. The token is returned in the body for API clients and set as a
// cookie for browsers.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[loginRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "username and password are required"))
		return
	}

	account, err := h.verifier.Verify(ctx, req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"username", req.Username,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		return
	}

	signed, jti, err := h.tokens.Generate(account.ID, account.DisplayName, account.Role, h.sessionTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "token generation failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "login failed", err))
		return
	}

	now := requestcontext.Now(ctx)
	session := identity.LoginSession{
		JTI:       jti,
		UserID:    account.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(h.sessionTTL),
	}
	if err := h.sessions.Put(ctx, session, h.sessionTTL); err != nil {
		h.logger.ErrorContext(ctx, "login session store failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeUnavailable, "login failed", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     identity.CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  now.Add(h.sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.auditor.Record(ctx, account.ID, audit.ActionLogin, nil)

	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token:       signed,
		DisplayName: account.DisplayName,
		Role:        account.Role,
	})
}

// HandleLogout revokes the server-side session and expires the cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := requestcontext.Principal(ctx)

	// RequireAPIAuth already validated the credential; re-parse it only to
	// learn which session to revoke.
	if raw := identity.CredentialFromRequest(r); raw != "" {
		if claims, err := h.tokens.Validate(raw); err == nil {
			if err := h.sessions.Delete(ctx, claims.ID); err != nil {
				h.logger.ErrorContext(ctx, "login session delete failed", "error", err)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     identity.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.auditor.Record(ctx, principal.ID, audit.ActionLogout, nil)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
