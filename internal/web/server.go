package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"

	"github.com/kozaktomas/photo-grouper/internal/config"
	"github.com/kozaktomas/photo-grouper/internal/fingerprint"
	"github.com/kozaktomas/photo-grouper/internal/pipeline"
	"github.com/kozaktomas/photo-grouper/internal/storage"
	"github.com/kozaktomas/photo-grouper/internal/web/handlers"
	"github.com/kozaktomas/photo-grouper/internal/web/middleware"
)

// Deps are the services the handlers are built from.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Fetcher  pipeline.Fetcher
	Hasher   fingerprint.Hasher
	Store    storage.Store
	// Detector may be nil when no label provider is configured.
	Detector handlers.FoodDetector
}

// Server represents the web server
type Server struct {
	config     *config.Config
	deps       Deps
	router     *chi.Mux
	httpServer *http.Server
	logger     hclog.Logger
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, deps Deps, logger hclog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		config: cfg,
		deps:   deps,
		router: r,
		logger: logger.Named("web"),
	}

	timeout := cfg.Web.RequestTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.AccessLog(s.logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(timeout))
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))
	r.Use(middleware.BodyLimit(cfg.Web.BodyLimit))

	r.MethodNotAllowed(handlers.MethodNotAllowed)
	r.NotFound(handlers.NotFound)

	// Set up routes
	s.setupRoutes()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         cfg.Web.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting web server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
