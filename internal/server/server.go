// Package server sets up the HTTP server, router, and all route
// definitions.
//
// This is the composition root: every dependency — database, token codec,
// hasher, provider client, service, handlers — is constructed and wired
// here, in one place. main.go only loads config and calls New/Start.
//
// DEPENDENCY CHAIN:
//
//	sqlite.DB ─┐
//	TokenService ─┤
//	SecretHasher ─┼→ SessionService → AuthHandler
//	GitHubProvider ─┘                 UserHandler (repo directly)
//
// Handlers never touch the database; the service never touches HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/gitgate/internal/auth"
	"github.com/sakif/gitgate/internal/config"
	"github.com/sakif/gitgate/internal/handler"
	"github.com/sakif/gitgate/internal/middleware"
	sqliteRepo "github.com/sakif/gitgate/internal/repository/sqlite"
	"github.com/sakif/gitgate/internal/service"
)

// Server owns the router and the resources that need closing on shutdown.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB // owned by the server, closed on shutdown
}

// New assembles the full dependency graph and returns a ready-to-start
// Server.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	provider := auth.NewGitHubProvider(
		cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURI,
	)

	sessions := service.NewSessionService(
		db.Users(), db.RefreshTokens(), tokens, auth.NewSecretHasher(), provider, logger,
	)

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(sessions)

	return s, nil
}

// setupRoutes configures middleware and all route handlers.
//
// MIDDLEWARE ORDER MATTERS — it executes in the order added:
//  1. RequestID — unique ID per request, for tracing
//  2. RealIP — real client IP from proxy headers
//  3. Recoverer — panics become 500s instead of crashes
//  4. CORS — the frontend origin, with credentials for the refresh cookie
//  5. Logger — one structured line per completed request
func (s *Server) setupRoutes(sessions *service.SessionService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)

	// AllowCredentials is what lets the browser send the refresh_token
	// cookie cross-origin; with it, the origin list cannot be a wildcard.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Use(middleware.Logger(s.logger))

	authHandler := handler.NewAuthHandler(
		sessions,
		s.cfg.FrontendURL,
		s.cfg.RefreshTokenTTL,
		s.cfg.Production(),
		s.logger,
	)
	userHandler := handler.NewUserHandler(s.db.Users(), s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/github", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/refresh", authHandler.HandleRefresh)
		r.Get("/me", authHandler.HandleMe)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Post("/users", userHandler.HandleCreate)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, s.cfg.AppEnv)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"route not found"}`)
	})
}

func writeHealth(w http.ResponseWriter, env string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","timestamp":%q,"environment":%q}`,
		time.Now().UTC().Format(time.RFC3339), env)
}

// Start starts the HTTP server and blocks until shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections on SIGINT/SIGTERM
//  2. Give in-flight requests 30 seconds to finish
//  3. Close the database (flushes the WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
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
			slog.Int("port", s.cfg.Port),
			slog.String("environment", s.cfg.AppEnv),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
