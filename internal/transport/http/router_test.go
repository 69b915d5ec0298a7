package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicore/internal/audit"
	auditmetrics "clinicore/internal/audit/metrics"
	auditmemory "clinicore/internal/audit/store/memory"
	"clinicore/internal/gate"
	"clinicore/internal/identity"
	identitystore "clinicore/internal/identity/store"
	"clinicore/internal/token"
	httptransport "clinicore/internal/transport/http"
	dErrors "clinicore/pkg/domain-errors"
	"clinicore/pkg/platform/sentinel"
)

// Prometheus collectors register globally; one instance serves every test
// in this binary.
var auditCounters = auditmetrics.New()

type fakeVerifier struct {
	accounts  map[string]identity.Account
	passwords map[string]string
}

func (v *fakeVerifier) Verify(_ context.Context, username, password string) (*identity.Account, error) {
	account, ok := v.accounts[username]
	if !ok || v.passwords[username] != password {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	return &account, nil
}

type fakeDirectory struct {
	names map[string]string
}

func (d *fakeDirectory) DisplayName(_ context.Context, userID string) (string, error) {
	name, ok := d.names[userID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return name, nil
}

type env struct {
	server   *httptest.Server
	auditSvc *audit.Service
	store    *auditmemory.InMemoryStore
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens := token.NewService("router-test-key", "clinicore", "clinicore-web")
	sessions := identitystore.NewInMemory()
	resolver := identity.NewResolver(tokens, sessions, logger)

	st := auditmemory.NewInMemoryStore()
	auditSvc := audit.NewService(st, logger, auditCounters)

	verifier := &fakeVerifier{
		accounts: map[string]identity.Account{
			"nurse": {ID: "u1", DisplayName: "Nadia Flores", Role: "STAFF"},
			"chief": {ID: "u2", DisplayName: "Omar Haddad", Role: "ADMIN"},
		},
		passwords: map[string]string{"nurse": "pw-nurse", "chief": "pw-chief"},
	}
	directory := &fakeDirectory{names: map[string]string{
		"u1": "Nadia Flores",
		"u2": "Omar Haddad",
	}}

	h := httptransport.NewHandler(verifier, directory, resolver, tokens, sessions, auditSvc, logger, time.Hour)
	g := gate.New(
		gate.NewPathSet([]string{"/dashboard", "/patients"}),
		resolver,
		"/login",
		logger,
		nil,
	)

	server := httptest.NewServer(httptransport.NewRouter(h, g))
	t.Cleanup(server.Close)
	return &env{server: server, auditSvc: auditSvc, store: st}
}

func (e *env) login(t *testing.T, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(e.server.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.NotEmpty(t, decoded.Token)
	return decoded.Token
}

func (e *env) get(t *testing.T, path, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func TestProtectedPageRedirectsAnonymous(t *testing.T) {
	e := newEnv(t)

	resp := e.get(t, "/dashboard/activity", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestAPIAnswersStatusCodesNotRedirects(t *testing.T) {
	e := newEnv(t)

	resp := e.get(t, "/api/activity", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e := newEnv(t)

	body, _ := json.Marshal(map[string]string{"username": "nurse", "password": "wrong"})
	resp, err := http.Post(e.server.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginGrantsProtectedAccess(t *testing.T) {
	e := newEnv(t)
	bearer := e.login(t, "nurse", "pw-nurse")

	resp := e.get(t, "/dashboard/activity", bearer)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestActivityScopedByRole(t *testing.T) {
	e := newEnv(t)

	// Seed activity for both users through the service so entries carry
	// real IDs and timestamps.
	ctx := context.Background()
	require.True(t, e.auditSvc.Record(ctx, "u1", "patient.created", nil).Ok())
	require.True(t, e.auditSvc.Record(ctx, "u2", "employee.updated", nil).Ok())
	require.True(t, e.auditSvc.Record(ctx, "u1", "sale.created", nil).Ok())

	decode := func(resp *http.Response) []struct {
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name"`
	} {
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Entries []struct {
				UserID      string `json:"user_id"`
				DisplayName string `json:"display_name"`
			} `json:"entries"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body.Entries
	}

	// Two seeded entries plus the auth.login recorded by the login itself.
	staffEntries := decode(e.get(t, "/api/activity", e.login(t, "nurse", "pw-nurse")))
	require.Len(t, staffEntries, 3)
	for _, entry := range staffEntries {
		assert.Equal(t, "u1", entry.UserID)
		assert.Equal(t, "Nadia Flores", entry.DisplayName)
	}

	// Admin sees the staff entries plus their own and both login events.
	adminEntries := decode(e.get(t, "/api/activity", e.login(t, "chief", "pw-chief")))
	assert.Greater(t, len(adminEntries), len(staffEntries))
}

func TestActivityDegradesUnknownUsers(t *testing.T) {
	e := newEnv(t)
	require.True(t, e.auditSvc.Record(context.Background(), "ghost", "patient.created", nil).Ok())

	resp := e.get(t, "/api/activity", e.login(t, "chief", "pw-chief"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Entries []struct {
			UserID      string `json:"user_id"`
			DisplayName string `json:"display_name"`
		} `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	found := false
	for _, entry := range body.Entries {
		if entry.UserID == "ghost" {
			found = true
			assert.Equal(t, "unknown user", entry.DisplayName)
		}
	}
	assert.True(t, found, "the dangling entry must still be listed")
}

func TestLogoutRevokesSession(t *testing.T) {
	e := newEnv(t)
	bearer := e.login(t, "nurse", "pw-nurse")

	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/api/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bearer)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The token itself is still unexpired; only the server-side session
	// revocation can make it anonymous again.
	after := e.get(t, "/api/activity", bearer)
	defer after.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, after.StatusCode)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)

	resp := e.get(t, "/healthz", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStaticAssetsSkipTheGate(t *testing.T) {
	e := newEnv(t)

	resp := e.get(t, "/static/app.css", "")
	defer resp.Body.Close()

	// Nothing is mounted there, but the gate must not have redirected.
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
