// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the composition root. It decides:
//   - which Content Store backend and view cache to open
//   - which URL patterns map to which handler functions
//   - what middleware runs on which routes
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → OpenStore (fs | sqlite | mongo) ─┐
//	             → openViews (memory | redis | none) ┼→ SnippetService → SnippetHandler
//	             → auth.TokenService, admin hash ────┴→ AuthService    → AuthHandler
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/sakif/snippet-vault/internal/auth"
	"github.com/sakif/snippet-vault/internal/cache"
	"github.com/sakif/snippet-vault/internal/config"
	"github.com/sakif/snippet-vault/internal/handler"
	"github.com/sakif/snippet-vault/internal/middleware"
	"github.com/sakif/snippet-vault/internal/render"
	"github.com/sakif/snippet-vault/internal/repository"
	"github.com/sakif/snippet-vault/internal/repository/filesystem"
	"github.com/sakif/snippet-vault/internal/repository/mongodb"
	sqliteRepo "github.com/sakif/snippet-vault/internal/repository/sqlite"
	"github.com/sakif/snippet-vault/internal/service"
)

// connectTimeout bounds how long startup waits for Mongo or Redis.
const connectTimeout = 10 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store and the view cache and closes both on shutdown,
// which flushes the SQLite WAL and releases network connections.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.SnippetRepository
	views  cache.Views
}

// New opens the configured backends and wires every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	views, err := openViews(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		views:  views,
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// OpenStore opens the Content Store backend named by cfg.StoreBackend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.SnippetRepository, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		// os.MkdirAll is `mkdir -p`: parents are created, existing dirs are fine.
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return db, nil

	case config.BackendMongo:
		st, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("connecting to mongodb: %w", err)
		}
		return st, nil

	case config.BackendFS:
		st, err := filesystem.New(cfg.ContentDir, logger)
		if err != nil {
			return nil, fmt.Errorf("opening content dir: %w", err)
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func openViews(ctx context.Context, cfg *config.Config) (cache.Views, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		r, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return r, nil
	case config.CacheNone:
		return cache.Nop{}, nil
	default:
		return cache.NewMemory(cfg.CacheTTL, cfg.CacheMaxPaths), nil
	}
}

// adminHash returns the configured bcrypt hash, hashing a plaintext
// ADMIN_PASSWORD once at startup when no hash was given.
func adminHash(cfg *config.Config, passwords *auth.PasswordService, logger *slog.Logger) (string, error) {
	if cfg.AdminPasswordHash != "" {
		return cfg.AdminPasswordHash, nil
	}
	logger.Warn("ADMIN_PASSWORD is set in plaintext; prefer ADMIN_PASSWORD_HASH (see cmd/hashpw)")
	return passwords.Hash(cfg.AdminPassword)
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                               → liveness
//	GET    /api/snippets[?category=]              → home or category listing
//	GET    /api/snippets/{category}/{slug}        → snippet + rendered html
//	GET    /api/snippets/{category}/{slug}/raw    → stored Markdown document
//	GET    /api/categories                        → categories with counts
//	GET    /api/categories/{category}             → category listing
//	GET    /api/search?q=                         → search
//	POST   /api/snippets                          → create      (admin)
//	PUT    /api/snippets/{category}/{slug}        → update body (admin)
//	DELETE /api/snippets/{category}/{slug}        → delete      (admin)
//	POST   /api/login                             → session cookie (rate limited)
//	POST   /api/logout                            → clear cookie
//	GET    /api/session                           → session state
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID, so the log line can carry it
//  2. RealIP, before anything keys on the client address
//  3. Recoverer turns panics into 500s
//  4. Logger
//  5. CORS, answering preflights before auth
//  6. RequestSize caps bodies
//  7. LoadSession attaches the admin session when the token is valid
func (s *Server) setupRoutes() error {
	passwords := auth.NewPasswordService(auth.DefaultCost)
	hash, err := adminHash(s.config, passwords, s.logger)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	snippetService := service.NewSnippetService(s.store, s.views, nil, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, render.New(render.DefaultStyle), s.views, s.logger)
	authHandler := handler.NewAuthHandler(service.NewAuthService(passwords, tokens, hash, s.logger), s.config.CookieSecure, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Location", handler.CacheHeader},
		AllowCredentials: true, // the session travels in a cookie
		MaxAge:           300,
	}))
	s.router.Use(chimiddleware.RequestSize(s.config.MaxRequestBytes))
	s.router.Use(auth.LoadSession(tokens))

	s.router.Get("/healthz", handler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/snippets", snippetHandler.HandleList)
		r.Get("/snippets/{category}/{slug}", snippetHandler.HandleGet)
		r.Get("/snippets/{category}/{slug}/raw", snippetHandler.HandleRaw)
		r.Get("/categories", snippetHandler.HandleCategories)
		r.Get("/categories/{category}", snippetHandler.HandleCategory)
		r.Get("/search", snippetHandler.HandleSearch)

		// Writes: RequireAdmin answers 401 early; the service checks again.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/snippets", snippetHandler.HandleCreate)
			r.Put("/snippets/{category}/{slug}", snippetHandler.HandleUpdate)
			r.Delete("/snippets/{category}/{slug}", snippetHandler.HandleDelete)
		})

		r.With(httprate.LimitByIP(s.config.LoginRateLimit, time.Minute)).
			Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/session", authHandler.HandleSession)
	})

	return nil
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store and the view cache.
func (s *Server) Close() error {
	return errors.Join(s.store.Close(), s.views.Close())
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the store and cache
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing backends", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.config.StoreBackend),
			slog.String("cache", s.config.CacheBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
