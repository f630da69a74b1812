// Package api exposes the action gateway over HTTP.
//
// Endpoints:
//
//	GET  /healthz              → liveness probe
//	POST /v1/sessions          → create a session
//	GET  /v1/sessions/{id}     → inspect a session
//	POST /v1/messages          → one conversational turn
//	POST /v1/actions/confirm   → confirmation reply for a pending action
//	POST /v1/actions/otp       → OTP entry for a pending action
//
// The confirm and OTP endpoints are conveniences for structured clients;
// all three POST entry points funnel into the same turn engine, so a plain
// /v1/messages client sees identical behavior.
//
// File structure:
//   - server.go: server setup and lifecycle
//   - middleware.go: recovery and logging middleware
//   - health.go: liveness endpoint
//   - session.go: session endpoints
//   - message.go: turn endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/onecard/assistant/internal/log"
	"github.com/onecard/assistant/internal/orchestrator"
	"github.com/onecard/assistant/internal/session"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8420"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing a response. Turns
	// that reach a generation call can take a while.
	WriteTimeout = 60 * time.Second

	// IdleTimeout applies to keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the gateway's HTTP front end.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health  *HealthHandler
	session *SessionHandler
	message *MessageHandler
}

// NewServer creates a server with all routes registered.
func NewServer(sessions *session.MemoryStore, engine *orchestrator.Orchestrator, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:     mux,
		logger:  logger,
		health:  NewHealthHandler(sessions),
		session: NewSessionHandler(sessions, logger),
		message: NewMessageHandler(sessions, engine, logger),
	}

	s.health.RegisterRoutes(mux)
	s.session.RegisterRoutes(mux)
	s.message.RegisterRoutes(mux)

	return s
}

// Handler returns the handler with middleware applied, recovery outermost.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run serves until the context is cancelled, then shuts down gracefully.
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
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
