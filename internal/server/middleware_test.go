// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelfe/geekcraft/internal/auth"
	"github.com/xelfe/geekcraft/internal/auth/memory"
	"github.com/xelfe/geekcraft/internal/game"
	"github.com/xelfe/geekcraft/internal/scripting"
)

// stubHasher keeps handler tests fast; bcrypt has its own tests.
type stubHasher struct{}

func (stubHasher) Hash(_ context.Context, password string) (string, error) {
	return "h:" + password, nil
}

func (stubHasher) Verify(_ context.Context, password, hash string) (bool, error) {
	return hash == "h:"+password, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := memory.NewStore()
	svc, err := auth.NewService(store, stubHasher{})
	require.NoError(t, err)

	campaigns, err := game.NewCampaignManager(t.TempDir())
	require.NoError(t, err)

	srv, err := New(Options{
		Addr:        ":0",
		AuthService: svc,
		World:       game.NewWorld(),
		Campaigns:   campaigns,
		Sandbox:     scripting.NewSandbox(),
	})
	require.NoError(t, err)
	return srv
}

// doJSON performs a request against the route tree and decodes the JSON
// response body into a map.
func doJSON(t *testing.T, srv *Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	}
	return rec.Code, out
}

// registerAndLogin creates an account through the API and returns a live
// session token.
func registerAndLogin(t *testing.T, srv *Server, username string) string {
	t.Helper()

	creds := map[string]string{"username": username, "password": "secret1"}
	status, _ := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", creds)
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", creds)
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{name: "valid", header: "Bearer abc123", token: "abc123", ok: true},
		{name: "lowercase scheme", header: "bearer abc123", token: "abc123", ok: true},
		{name: "empty header", header: "", ok: false},
		{name: "no scheme", header: "abc123", ok: false},
		{name: "wrong scheme", header: "Basic abc123", ok: false},
		{name: "scheme only", header: "Bearer ", ok: false},
		{name: "scheme no space", header: "Bearer", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := bearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	t.Run("missing header", func(t *testing.T) {
		status, body := doJSON(t, srv, http.MethodGet, "/api/players", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Authentication required", body["message"])
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/players", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		status, _ := doJSON(t, srv, http.MethodGet, "/api/players", "no-such-token", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("valid token", func(t *testing.T) {
		token := registerAndLogin(t, srv, "alice")
		status, _ := doJSON(t, srv, http.MethodGet, "/api/players", token, nil)
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestRequireAuthStoreUnavailable(t *testing.T) {
	svc, err := auth.NewService(unavailableStore{}, stubHasher{})
	require.NoError(t, err)

	campaigns, err := game.NewCampaignManager(t.TempDir())
	require.NoError(t, err)

	srv, err := New(Options{
		Addr:        ":0",
		AuthService: svc,
		World:       game.NewWorld(),
		Campaigns:   campaigns,
		Sandbox:     scripting.NewSandbox(),
	})
	require.NoError(t, err)

	// An outage must answer 500, not 401: the session may still be valid.
	status, body := doJSON(t, srv, http.MethodGet, "/api/players", "some-token", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", body["message"])
}

// unavailableStore simulates a downed backend.
type unavailableStore struct{}

func (unavailableStore) CreateUser(context.Context, string, string) (*auth.User, error) {
	return nil, auth.ErrUnavailable
}

func (unavailableStore) GetUser(context.Context, string) (*auth.User, error) {
	return nil, auth.ErrUnavailable
}

func (unavailableStore) CreateSession(context.Context, string) (*auth.Session, error) {
	return nil, auth.ErrUnavailable
}

func (unavailableStore) GetSession(context.Context, string) (*auth.Session, error) {
	return nil, auth.ErrUnavailable
}

func (unavailableStore) DeleteSession(context.Context, string) error { return auth.ErrUnavailable }

func (unavailableStore) DeleteExpiredSessions(context.Context) (int64, error) {
	return 0, auth.ErrUnavailable
}

func (unavailableStore) Close(context.Context) error { return nil }

func TestBodyLimit(t *testing.T) {
	srv := newTestServer(t)

	t.Run("oversize declared body rejected without auth", func(t *testing.T) {
		big := strings.NewReader(strings.Repeat("x", MaxBodyBytes+1))
		req := httptest.NewRequest(http.MethodPost, "/api/submit", big)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("oversize body rejected with valid auth", func(t *testing.T) {
		token := registerAndLogin(t, srv, "bob")
		big := strings.NewReader(strings.Repeat("x", MaxBodyBytes+1))
		req := httptest.NewRequest(http.MethodPost, "/api/submit", big)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("normal body passes", func(t *testing.T) {
		token := registerAndLogin(t, srv, "carol")
		status, _ := doJSON(t, srv, http.MethodPost, "/api/submit", token, map[string]string{"code": "move north"})
		assert.Equal(t, http.StatusOK, status)
	})
}
