package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAdmin(t *testing.T) {
	assert.False(t, IsAdmin(context.Background()))
	assert.False(t, IsAdmin(WithSession(context.Background(), Session{Subject: "someone"})))
	assert.True(t, IsAdmin(WithSession(context.Background(), Session{Subject: AdminSubject})))
}

// recordAdmin records whether the request reached it with an admin session.
func recordAdmin(seen *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = IsAdmin(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestLoadSession(t *testing.T) {
	ts := newTestTokenService(t)
	token, _, err := ts.Generate()
	require.NoError(t, err)

	tests := []struct {
		name      string
		prepare   func(r *http.Request)
		wantAdmin bool
	}{
		{"anonymous", func(r *http.Request) {}, false},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: token}) }, true},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, true},
		{"bad cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: "junk"}) }, false},
		{"basic scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+token) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var admin bool
			h := LoadSession(ts)(recordAdmin(&admin))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			// LoadSession never rejects.
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.wantAdmin, admin)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	ts := newTestTokenService(t)
	token, _, err := ts.Generate()
	require.NoError(t, err)

	var admin bool
	h := LoadSession(ts)(RequireAdmin(recordAdmin(&admin)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"login":"/api/login"`)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, admin)
}
