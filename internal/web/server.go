package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/light-recon/internal/database"
	"github.com/kozaktomas/light-recon/internal/logging"
	"github.com/kozaktomas/light-recon/internal/web/handlers"
	"github.com/kozaktomas/light-recon/internal/web/middleware"
)

// Deps are the components the HTTP surface reads from.
type Deps struct {
	Hub      handlers.SnapshotSource
	Switcher handlers.CameraSwitcher // nil when the session reads a replay source
	Cameras  func() []int
	Registry handlers.RegistryManager
	Profiles handlers.ProfileStore
	Settings handlers.SettingsSource
	Journal  database.SightingReader // nil when the journal is disabled
	Origins  middleware.Origins
	Logger   *slog.Logger
}

// Server represents the web server
type Server struct {
	deps       Deps
	router     *chi.Mux
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new web server
func NewServer(deps Deps, host string, port int) *Server {
	r := chi.NewRouter()
	deps.Logger = logging.OrDefault(deps.Logger)
	if deps.Origins == nil {
		deps.Origins = middleware.Origins{}
	}

	s := &Server{
		deps:   deps,
		router: r,
		logger: deps.Logger,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(deps.Origins))

	s.setupRoutes()

	// Streaming handlers only return when their request context ends, so
	// the base context is cancelled as soon as Shutdown starts.
	baseCtx, cancel := context.WithCancel(context.Background())
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           r,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// SSE and WebSocket responses stay open, so no WriteTimeout.
		IdleTimeout: 60 * time.Second,
	}
	s.httpServer.RegisterOnShutdown(cancel)

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
