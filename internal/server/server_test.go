package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/snippet-vault/internal/auth"
	"github.com/sakif/snippet-vault/internal/config"
	"github.com/sakif/snippet-vault/internal/handler"
)

const testPassword = "correct horse battery"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := auth.NewPasswordService(bcrypt.MinCost).Hash(testPassword)
	require.NoError(t, err)

	return &config.Config{
		Port:              0,
		StoreBackend:      config.BackendFS,
		ContentDir:        t.TempDir(),
		CacheBackend:      config.CacheMemory,
		CacheTTL:          time.Minute,
		CacheMaxPaths:     64,
		MaxRequestBytes:   1 << 10,
		AdminPasswordHash: hash,
		JWTSecret:         "server-test-secret-0123456789",
		SessionTTL:        time.Hour,
		CORSOrigins:       []string{"https://vault.example"},
		LoginRateLimit:    3,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	srv, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv.Handler()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"password":"`+testPassword+`"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestRoutes_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	h := newTestServer(t, cfg)
	cookie := login(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/snippets", strings.NewReader(
		`{"title":"Worker Pool","language":"go","category":"Concurrency","content":"Fan out work over N goroutines."}`))
	req.AddCookie(cookie)
	rec := serve(h, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	location := rec.Header().Get("Location")
	assert.Equal(t, "/api/snippets/concurrency/worker-pool", location)

	routes := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/snippets", http.StatusOK},
		{http.MethodGet, "/api/snippets?category=concurrency", http.StatusOK},
		{http.MethodGet, location, http.StatusOK},
		{http.MethodGet, location + "/raw", http.StatusOK},
		{http.MethodGet, "/api/categories", http.StatusOK},
		{http.MethodGet, "/api/categories/concurrency", http.StatusOK},
		{http.MethodGet, "/api/search?q=goroutines", http.StatusOK},
		{http.MethodGet, "/api/session", http.StatusOK},
		{http.MethodGet, "/api/nope", http.StatusNotFound},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := serve(h, httptest.NewRequest(rt.method, rt.path, nil))
			assert.Equal(t, rt.want, rec.Code, rec.Body.String())
		})
	}

	// The file backend wrote a real document.
	files, err := filepath.Glob(filepath.Join(cfg.ContentDir, "concurrency", "*.md"))
	require.NoError(t, err)
	assert.NotEmpty(t, files)

	req = httptest.NewRequest(http.MethodDelete, location, nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusNoContent, serve(h, req).Code)
	assert.Equal(t, http.StatusNotFound, serve(h, httptest.NewRequest(http.MethodGet, location, nil)).Code)
}

func TestRoutes_WritesRequireAdmin(t *testing.T) {
	h := newTestServer(t, testConfig(t))

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/snippets", strings.NewReader(`{}`)),
		httptest.NewRequest(http.MethodPut, "/api/snippets/go/x", strings.NewReader(`{"content":"x"}`)),
		httptest.NewRequest(http.MethodDelete, "/api/snippets/go/x", nil),
	} {
		rec := serve(h, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, req.Method)
		assert.Contains(t, rec.Body.String(), handler.LoginPath)
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	cfg := testConfig(t)
	h := newTestServer(t, cfg)

	var last int
	for i := 0; i <= cfg.LoginRateLimit; i++ {
		rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"password":"nope"}`)))
		last = rec.Code
		if i < cfg.LoginRateLimit {
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/api/snippets", nil)).Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, testConfig(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/snippets", nil)
	req.Header.Set("Origin", "https://vault.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(h, req)

	assert.Equal(t, "https://vault.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRequestBodyIsCapped(t *testing.T) {
	h := newTestServer(t, testConfig(t))

	big := `{"password":"` + strings.Repeat("a", 4<<10) + `"}`
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(big)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNew_PlaintextPasswordAndSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminPasswordHash = ""
	cfg.AdminPassword = testPassword
	cfg.StoreBackend = config.BackendSQLite
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "snippets.db")
	cfg.CacheBackend = config.CacheNone

	h := newTestServer(t, cfg)
	login(t, h)
	assert.FileExists(t, cfg.DBPath)
}

func TestNew_BadBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreBackend = "tape"
	_, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
