package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imadgeboyega/kiekky-match/internal/common/utils"
)

func TestAuthenticate(t *testing.T) {
	const secret = "test-secret"
	m := NewMiddleware(secret)

	var seen string
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	valid, err := utils.GenerateJWT("user-1", secret, 0)
	assert.NoError(t, err)
	foreign, err := utils.GenerateJWT("user-1", "another-secret", 0)
	assert.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"valid token", "Bearer " + valid, http.StatusNoContent, "user-1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, ""},
		{"bad signature", "Bearer " + foreign, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUser, seen)
		})
	}
}

func TestAuthenticate_WebsocketQueryToken(t *testing.T) {
	m := NewMiddleware("s")
	token, _ := utils.GenerateJWT("ws-user", "s", 0)

	var seen string
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "ws-user", seen)

	// query tokens are ignored on plain requests
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed?token="+token, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	const secret = "test-secret"
	m := NewMiddleware(secret)
	handler := m.Authenticate(m.RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	admin, err := utils.GenerateJWTWithRole("ops-1", RoleAdmin, secret, 0)
	assert.NoError(t, err)
	member, err := utils.GenerateJWT("user-1", secret, 0)
	assert.NoError(t, err)
	other, err := utils.GenerateJWTWithRole("user-2", "moderator", secret, 0)
	assert.NoError(t, err)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"admin", admin, http.StatusNoContent},
		{"no role", member, http.StatusForbidden},
		{"other role", other, http.StatusForbidden},
		{"anonymous", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
