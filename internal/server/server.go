// Package server exposes the chat service as a JSON REST API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/nikkelr/chat-with-PDF/internal/chat"
	"github.com/nikkelr/chat-with-PDF/internal/config"
	"github.com/nikkelr/chat-with-PDF/internal/logging"
)

const (
	APIName    = "Chat with PDF API"
	APIVersion = "1.0.0"

	maxAskBody = 1 << 20
)

// Server serves the REST API for one chat service.
type Server struct {
	svc            *chat.Service
	maxUploadBytes int64
	corsOrigins    []string
	shutdown       time.Duration

	srv *http.Server
}

// New creates a new API server for svc.
func New(svc *chat.Service, cfg config.ServerConfig) *Server {
	s := &Server{
		svc:            svc,
		maxUploadBytes: cfg.MaxUploadBytes(),
		corsOrigins:    cfg.CORSOrigins,
		shutdown:       cfg.ShutdownTimeout,
	}
	if s.shutdown <= 0 {
		s.shutdown = 10 * time.Second
	}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in the CORS and logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)

	return logRequests(cors(s.corsOrigins, mux))
}

// Run listens on the configured address until ctx is done, then drains
// in-flight requests for at most the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logging.LogEvent("Listening on %s", ln.Addr())
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down, waiting up to %v for open requests", s.shutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
