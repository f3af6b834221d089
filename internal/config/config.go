// Package config reads the server configuration from the environment.
//
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config is everything the server and the tools need to start.
type Config struct {
	Port     int
	LogLevel slog.Level

	StoreBackend    string
	ContentDir      string
	DBPath          string
	MongoURI        string
	MongoDatabase   string
	CacheBackend    string
	RedisURL        string
	CacheTTL        time.Duration
	CacheMaxPaths   int
	MaxRequestBytes int64

	// Exactly one of AdminPasswordHash and AdminPassword is set.
	AdminPasswordHash string
	AdminPassword     string
	JWTSecret         string
	SessionTTL        time.Duration
	CookieSecure      bool

	CORSOrigins    []string
	LoginRateLimit int // attempts per IP per minute
}

// Load loads .env (if any) and reads the environment. Every problem found is
// reported in one joined error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (*Config, error) {
	var errs []error
	p := parser{errs: &errs}

	cfg := &Config{
		Port:            p.int("PORT", 8080),
		LogLevel:        p.level("LOG_LEVEL", slog.LevelInfo),
		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", BackendFS)),
		ContentDir:      getEnv("CONTENT_DIR", "_snippets"),
		DBPath:          getEnv("DB_PATH", "data/snippets.db"),
		MongoURI:        os.Getenv("MONGODB_URI"),
		MongoDatabase:   getEnv("MONGODB_DATABASE", "snippet_vault"),
		CacheBackend:    strings.ToLower(getEnv("CACHE_BACKEND", CacheMemory)),
		RedisURL:        os.Getenv("REDIS_URL"),
		CacheTTL:        p.duration("CACHE_TTL", 10*time.Minute),
		CacheMaxPaths:   p.int("CACHE_MAX_PATHS", 1024),
		MaxRequestBytes: int64(p.int("MAX_REQUEST_BYTES", 1<<20)),

		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		SessionTTL:        p.duration("SESSION_TTL", 12*time.Hour),
		CookieSecure:      p.bool("COOKIE_SECURE", false),

		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		LoginRateLimit: p.int("LOGIN_RATE_LIMIT", 5),
	}

	switch cfg.StoreBackend {
	case BackendFS, BackendSQLite:
	case BackendMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required when STORE_BACKEND=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be one of fs, sqlite, mongo (got %q)", cfg.StoreBackend))
	}

	switch cfg.CacheBackend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if cfg.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when CACHE_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be one of memory, redis, none (got %q)", cfg.CacheBackend))
	}

	switch {
	case cfg.AdminPasswordHash == "" && cfg.AdminPassword == "":
		errs = append(errs, errors.New("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required"))
	case cfg.AdminPasswordHash != "":
		cfg.AdminPassword = ""
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.CacheMaxPaths < 1 {
		errs = append(errs, errors.New("CACHE_MAX_PATHS must be at least 1"))
	}
	if cfg.LoginRateLimit < 1 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT must be at least 1"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// getEnv returns the variable or fallback when it is unset or empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects conversion errors instead of failing on the first one.
type parser struct {
	errs *[]error
}

func (p parser) fail(key, value, want string) {
	*p.errs = append(*p.errs, fmt.Errorf("%s must be %s (got %q)", key, want, value))
}

func (p parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, "an integer")
		return fallback
	}
	return n
}

func (p parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, "a boolean")
		return fallback
	}
	return b
}

func (p parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		p.fail(key, v, "a duration like 10m")
		return fallback
	}
	return d
}

func (p parser) level(key string, fallback slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.fail(key, v, "one of debug, info, warn, error")
		return fallback
	}
	return l
}
