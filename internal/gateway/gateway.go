// Package gateway provides the HTTP REST API for the nexus chat service.
//
// Endpoints:
//
//	POST /chat    → provider fallback chain (chat.Responder)
//	GET  /health  → liveness probe
//	GET  /ready   → readiness probe
//
// File structure:
//   - gateway.go: server setup and lifecycle
//   - middleware.go: HTTP middleware (recovery, CORS, logging)
//   - chat.go: the /chat handler
//   - health.go: health check endpoints
//   - response.go: JSON response helpers
//
// The gateway holds no session state: each request carries the full
// conversation and the response is a pure function of it, so replicas
// can be added freely.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nexuslabs/nexus/internal/chat"
	"github.com/nexuslabs/nexus/internal/log"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds request header reads (Slowloris).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Provider calls can be slow, so this exceeds the client's own
	// 30-second budget.
	WriteTimeout = 60 * time.Second

	// IdleTimeout bounds keep-alive waits.
	IdleTimeout = 120 * time.Second
)

// ServerConfig contains all parameters for a Server.
type ServerConfig struct {
	Responder   *chat.Responder
	Logger      log.Logger
	CORSOrigins []string
}

func (cfg ServerConfig) validate() error {
	if cfg.Responder == nil {
		return errors.New("responder is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Server is the HTTP server for the chat gateway.
type Server struct {
	mux         *http.ServeMux
	logger      log.Logger
	corsOrigins []string

	health *HealthHandler
	chat   *ChatHandler
}

// NewServer creates a server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:         mux,
		logger:      cfg.Logger,
		corsOrigins: cfg.CORSOrigins,
		health:      NewHealthHandler(cfg.Logger),
		chat:        NewChatHandler(cfg.Responder, cfg.Logger),
	}

	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)

	return s, nil
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → CORS → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		corsMiddleware(s.corsOrigins),
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
