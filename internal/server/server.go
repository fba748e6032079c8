// Package server provides the HTTP API for asking questions about the bylaws.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/jourei/internal/config"
	"github.com/hyperjump/jourei/internal/keyword"
	"github.com/hyperjump/jourei/internal/models"
	"github.com/hyperjump/jourei/internal/vector"
	"github.com/hyperjump/jourei/pkg/utils"
)

// ErrRebuildInProgress is returned by Rebuild when another rebuild is running.
var ErrRebuildInProgress = errors.New("index rebuild in progress")

// Asker answers one question.
type Asker interface {
	Ask(ctx context.Context, question string) (*models.QueryResult, error)
}

// RecordSearcher looks up structured records by keyword.
type RecordSearcher interface {
	Search(ctx context.Context, query string, limit int, opts *keyword.SearchOptions) ([]keyword.Hit, error)
	Terms() (map[string]int, error)
	Count() (uint64, error)
}

// Server is the HTTP server for the query API.
type Server struct {
	engine     Asker
	store      vector.Store
	records    RecordSearcher
	cfg        *config.Config
	logger     *zap.Logger
	server     *http.Server
	rebuilding atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = utils.LoggerOrNop(l) }
}

// WithRecords enables /api/v1/records.
func WithRecords(r RecordSearcher) Option {
	return func(s *Server) { s.records = r }
}

// NewServer creates a server. store is only read, for status reporting.
func NewServer(engine Asker, store vector.Store, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		store:  store,
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with all middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout()))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           600,
	}))

	r.Get("/ping", s.handlePing)
	r.Post("/query", s.handleQuery)
	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/records", s.handleRecords)
	})
	return r
}

func (s *Server) requestTimeout() time.Duration {
	if secs := s.cfg.Server.RequestTimeoutSecs; secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 60 * time.Second
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Rebuild runs fn while /query answers 503. Only one rebuild runs at a time.
func (s *Server) Rebuild(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.rebuilding.CompareAndSwap(false, true) {
		return ErrRebuildInProgress
	}
	defer s.rebuilding.Store(false)
	start := time.Now()
	s.logger.Info("Rebuilding index")
	if err := fn(ctx); err != nil {
		s.logger.Error("Rebuild failed", zap.Error(err))
		return err
	}
	s.logger.Info("Rebuild finished", zap.Duration("took", time.Since(start)))
	return nil
}

// Rebuilding reports whether a rebuild is running.
func (s *Server) Rebuilding() bool {
	return s.rebuilding.Load()
}
