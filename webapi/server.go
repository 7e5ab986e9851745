// Package webapi serves the upload-and-transform HTTP interface:
// an upload form, a JSON generation API, and the stored results.
package webapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/db"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/imagegen"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/logging"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/metrics"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/resultstore"
)

// ServerConfig configures the web server.
type ServerConfig struct {
	// Host to bind to; empty binds all interfaces.
	Host string

	// Port to listen on (default 5000).
	Port int

	// MaxUploadBytes caps request bodies (default 16 MB).
	MaxUploadBytes int64

	// PasswordHash enables login when non-empty (bcrypt hash).
	PasswordHash string

	// Guard, when set, wraps each generation so graceful shutdown can
	// drain in-flight work. It should return shutdown.ErrClosed once
	// shutdown has begun; nil runs the generation unguarded.
	Guard func(ctx context.Context, name string, fn func(context.Context) error) error

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns the defaults for a local deployment.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           5000,
		MaxUploadBytes: 16 << 20,
		ReadTimeout:    60 * time.Second,
		// Generation can take minutes; the write timeout must cover it.
		WriteTimeout:    10 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server is the HTTP organism wiring generator, result store, history
// and metrics behind the upload API.
type Server struct {
	config    ServerConfig
	logger    *logging.Logger
	generator *imagegen.Generator
	store     *resultstore.Store
	history   *db.HistoryRepository
	metrics   *metrics.Store
	sessions  *SessionStore
	auth      *authMiddleware

	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer wires the server. history may be nil to disable persistence
// and metricsStore may be nil to disable counters.
func NewServer(
	config ServerConfig,
	generator *imagegen.Generator,
	store *resultstore.Store,
	history *db.HistoryRepository,
	metricsStore *metrics.Store,
	logger *logging.Logger,
) *Server {
	if config.Port == 0 {
		config.Port = 5000
	}
	if config.MaxUploadBytes == 0 {
		config.MaxUploadBytes = 16 << 20
	}

	s := &Server{
		config:    config,
		logger:    logger,
		generator: generator,
		store:     store,
		history:   history,
		metrics:   metricsStore,
		sessions:  NewSessionStore(),
		mux:       http.NewServeMux(),
	}
	s.auth = &authMiddleware{passwordHash: config.PasswordHash, sessions: s.sessions}
	s.routes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	handler := requestLogger(logger, map[string]bool{"/health": true}, s.auth.wrap(s.mux))
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/demo", s.handleDemoPage)
	s.mux.HandleFunc("/login", s.handleLogin)
	s.mux.HandleFunc("/logout", s.handleLogout)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/results/", s.handleResultFile)

	s.mux.HandleFunc("/api/generate", s.handleGenerate)
	s.mux.HandleFunc("/api/models", s.handleModels)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/demo-examples", s.handleDemoExamples)
	s.mux.HandleFunc("/api/history", s.handleHistory)
}

// Handler returns the fully wrapped handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens and serves until the server is shut down.
func (s *Server) Start() error {
	s.logger.Infow("web server starting",
		"addr", s.httpServer.Addr,
		"auth_enabled", s.auth.enabled(),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webapi: serve: %w", err)
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
