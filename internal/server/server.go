// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: main.go hands us a Config, and New wires
// the full dependency chain in one place:
//
//	sqlite.DB → AuthService/StreamService → AuthHandler/StreamHandler → routes
//
// Each layer only receives what it needs. Handlers never touch the
// database directly; services never touch HTTP.
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

	"github.com/muzerhq/muzer/internal/auth"
	"github.com/muzerhq/muzer/internal/handler"
	"github.com/muzerhq/muzer/internal/middleware"
	sqliteRepo "github.com/muzerhq/muzer/internal/repository/sqlite"
	"github.com/muzerhq/muzer/internal/service"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret signs session tokens. Must be set; the server refuses
	// to start without it.
	JWTSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the resources that must be released on
// shutdown (currently just the database connection).
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain and returns a Server ready
// to Start.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// Route structure:
//
//	GET  /health                    → liveness check
//	GET  /auth/{provider}/login     → redirect to the OAuth consent page
//	GET  /auth/{provider}/callback  → OAuth code exchange, sets session cookie
//	POST /auth/logout               → clears the session cookie
//	GET  /auth/me                   → current user (auth required)
//	GET  /streams                   → list streams (auth optional; own view needs it)
//	POST /streams                   → submit a stream (auth required)
//	POST /streams/upvote            → upvote (auth required)
//	POST /streams/downvote          → withdraw an upvote (auth required)
//
// Middleware order matters: RequestID and RealIP run first so the
// logger and recoverer see the enriched request.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// OAuth providers are registered only when their credentials are
	// configured; hitting an unregistered provider returns 404 from
	// the handler.
	providers := make(map[string]*auth.Provider)
	if s.config.GoogleClientID != "" && s.config.GoogleClientSecret != "" {
		providers["google"] = auth.NewGoogleProvider(
			s.config.GoogleClientID,
			s.config.GoogleClientSecret,
			s.config.GoogleCallbackURL,
		)
	} else {
		s.logger.Warn("Google OAuth credentials not set — Google sign-in disabled")
	}
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		providers["github"] = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	} else {
		s.logger.Warn("GitHub OAuth credentials not set — GitHub sign-in disabled")
	}

	authService := service.NewAuthService(s.db, tokens, s.logger)
	streamService := service.NewStreamService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(providers, authService, s.logger)
	streamHandler := handler.NewStreamHandler(streamService, s.logger)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/{provider}/login", authHandler.HandleLogin)
		r.Get("/{provider}/callback", authHandler.HandleCallback)
		r.Post("/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", authHandler.HandleMe)
		})
	})

	s.router.Route("/streams", func(r chi.Router) {
		// Listing works without a session (public view of another
		// user's queue), but picks up the caller identity when the
		// cookie is present.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Get("/", streamHandler.HandleList)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/", streamHandler.HandleCreate)
			r.Post("/upvote", streamHandler.HandleUpvote)
			r.Post("/downvote", streamHandler.HandleDownvote)
		})
	})

	return nil
}

// Start runs the HTTP server until a shutdown signal arrives, then
// drains in-flight requests and closes the database. In-flight
// requests get 30 seconds to complete.
func (s *Server) Start() error {
	defer s.db.Close()

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
			slog.String("database", s.config.DBPath),
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
