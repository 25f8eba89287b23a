// Package api exposes the generation queue and the current result over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgnsrekt/prosodic-go/internal/config"
	"github.com/dgnsrekt/prosodic-go/internal/observe"
	"github.com/dgnsrekt/prosodic-go/internal/pipeline"
	"github.com/dgnsrekt/prosodic-go/internal/queue"
)

// Session is the part of the pipeline the API reads and controls directly.
type Session interface {
	Current() *pipeline.Result
	WAV(ctx context.Context) ([]byte, error)
	Stop() error
	IsPlaying() bool
}

// Options holds optional server collaborators.
type Options struct {
	// Metrics enables request tracing and duration metrics.
	Metrics *observe.Metrics
	// MetricsHandler is served at /metrics when set.
	MetricsHandler http.Handler
}

// Server handles HTTP API requests.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *http.Server
	queue   *queue.Queue
	session Session
	handler http.Handler
}

// New creates a new API server. q and sess may be nil, in which case the
// endpoints needing them answer 503.
func New(cfg *config.Config, logger *slog.Logger, q *queue.Queue, sess Session, opts Options) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		queue:   q,
		session: sess,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)
	mux.HandleFunc("GET /v1/profiles", s.handleProfiles)
	mux.HandleFunc("POST /v1/speak", s.withAuth(s.handleSpeak))
	mux.HandleFunc("POST /v1/stop", s.withAuth(s.handleStop))
	mux.HandleFunc("GET /v1/audio", s.withAuth(s.handleAudio))
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	s.handler = mux
	if opts.Metrics != nil {
		s.handler = observe.Middleware(opts.Metrics, logger)(mux)
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
