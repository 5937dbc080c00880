// Package server provides the HTTP API for vectorscan.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/olegasics/VectorScan/internal/config"
	"github.com/olegasics/VectorScan/internal/coordinator"
	"github.com/olegasics/VectorScan/internal/models"
)

// Backend is the index the server exposes. *coordinator.Coordinator satisfies it.
type Backend interface {
	IndexTexts(ctx context.Context, texts []string) error
	IndexRecords(ctx context.Context, records []models.MetadataRecord) error
	SearchHits(ctx context.Context, query string, k int, mode coordinator.Mode) ([]models.SearchHit, error)
	Suggest(ctx context.Context, query string) (string, error)
	CurrentSize() int
	Stats() models.IndexStats
	Save() error
	Delete(ctx context.Context, positions ...int) error
	Compact(ctx context.Context) (int, error)
}

// Server is the HTTP server for the vectorscan API.
type Server struct {
	backend     Backend
	config      config.ServerConfig
	defaultK    int
	defaultMode coordinator.Mode
	metrics     *Metrics
	logger      *zap.Logger
	server      *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSearchDefaults sets k and mode used when a search request leaves them out.
func WithSearchDefaults(k int, mode coordinator.Mode) Option {
	return func(s *Server) {
		if k > 0 {
			s.defaultK = k
		}
		if mode != "" {
			s.defaultMode = mode
		}
	}
}

// WithMetrics sets the metrics collector; by default each server gets its own registry.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server over backend.
func NewServer(backend Backend, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		backend:     backend,
		config:      cfg,
		defaultK:    20,
		defaultMode: coordinator.ModeSnapshot,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	s.metrics.indexSize.Set(float64(backend.CurrentSize()))
	return s
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/index", s.handleIndex)
		r.Post("/search", s.handleSearch)
		r.Get("/suggest", s.handleSuggest)
		r.Get("/size", s.handleSize)
		r.Get("/status", s.handleStatus)
		r.Post("/save", s.handleSave)
		r.Delete("/records/{position}", s.handleDelete)
		r.Post("/compact", s.handleCompact)
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}
