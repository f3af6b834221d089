package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "LOG_LEVEL", "STORE_BACKEND", "CONTENT_DIR", "DB_PATH",
	"MONGODB_URI", "MONGODB_DATABASE", "CACHE_BACKEND", "REDIS_URL",
	"CACHE_TTL", "CACHE_MAX_PATHS", "MAX_REQUEST_BYTES", "ADMIN_PASSWORD_HASH", "ADMIN_PASSWORD",
	"JWT_SECRET", "SESSION_TTL", "COOKIE_SECURE", "CORS_ORIGINS",
	"LOGIN_RATE_LIMIT",
}

// setEnv clears every key Load reads, then applies env.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	setEnv(t, map[string]string{
		"ADMIN_PASSWORD_HASH": "$2a$12$hash",
		"JWT_SECRET":          "secret",
	})

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, BackendFS, cfg.StoreBackend)
	assert.Equal(t, "_snippets", cfg.ContentDir)
	assert.Equal(t, "data/snippets.db", cfg.DBPath)
	assert.Equal(t, CacheMemory, cfg.CacheBackend)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 1024, cfg.CacheMaxPaths)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.LoginRateLimit)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.False(t, cfg.CookieSecure)
}

func TestFromEnv_Overrides(t *testing.T) {
	setEnv(t, map[string]string{
		"PORT":             "9000",
		"LOG_LEVEL":        "debug",
		"STORE_BACKEND":    "Mongo",
		"MONGODB_URI":      "mongodb://localhost:27017",
		"CACHE_BACKEND":    "redis",
		"REDIS_URL":        "redis://localhost:6379/0",
		"CACHE_TTL":        "30s",
		"CACHE_MAX_PATHS":  "64",
		"ADMIN_PASSWORD":   "plain",
		"JWT_SECRET":       "secret",
		"COOKIE_SECURE":    "true",
		"CORS_ORIGINS":     " https://a.example , ,https://b.example",
		"LOGIN_RATE_LIMIT": "10",
	})

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.Equal(t, CacheRedis, cfg.CacheBackend)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 64, cfg.CacheMaxPaths)
	assert.Equal(t, "plain", cfg.AdminPassword)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 10, cfg.LoginRateLimit)
}

func TestFromEnv_HashWinsOverPlainPassword(t *testing.T) {
	setEnv(t, map[string]string{
		"ADMIN_PASSWORD_HASH": "$2a$12$hash",
		"ADMIN_PASSWORD":      "plain",
		"JWT_SECRET":          "secret",
	})

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.AdminPassword)
}

func TestFromEnv_ReportsEveryProblem(t *testing.T) {
	setEnv(t, map[string]string{
		"PORT":          "eighty",
		"STORE_BACKEND": "mongo",
		"CACHE_BACKEND": "memcached",
		"CACHE_TTL":     "soon",
	})

	_, err := FromEnv()
	require.Error(t, err)

	for _, want := range []string{
		"PORT must be an integer",
		"CACHE_TTL must be a duration",
		"MONGODB_URI is required",
		"CACHE_BACKEND must be one of",
		"ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required",
		"JWT_SECRET is required",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, splitCSV(""))
	assert.Equal(t, []string{"a"}, splitCSV(" a ,"))
}
