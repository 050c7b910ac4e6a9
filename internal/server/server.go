// Package server implements the wheelscan HTTP service.
//
// The service wraps the inspector behind a small JSON API:
//
//   - POST /v1/inspect: upload a wheel, get its inspection report
//   - GET /v1/reports, GET/DELETE /v1/reports/{id}: stored reports
//   - GET /v1/schema?kind=wheel|dist-info: the report JSON Schema
//   - GET /healthz: liveness and backend health
//
// Inspection responses are cached by archive content: the cache key hashes
// the upload's SHA-256 together with the inspection options, so re-uploading
// the same wheel is answered from cache (X-Cache: hit) with byte-identical
// report JSON. The cache lives in process memory by default and in Redis
// when configured.
//
// Reports are persisted only when a store is configured (MongoDB or a
// directory). IDs live in the store envelope, never inside the report
// document itself.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pkgfoundry/wheelscan/pkg/cache"
	"github.com/pkgfoundry/wheelscan/pkg/store"
)

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8080"

	// DefaultMaxUpload caps wheel uploads at 512 MiB.
	DefaultMaxUpload = 512 << 20

	// DefaultMongoDB is the MongoDB database name.
	DefaultMongoDB = "wheelscan"

	requestTimeout  = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// Config configures the HTTP service.
type Config struct {
	// Addr is the listen address. Empty means DefaultAddr.
	Addr string

	// Redis is the address or redis:// URL of the Redis instance backing
	// the report cache. Empty keeps the cache in process memory.
	Redis string

	// Mongo is the MongoDB URI backing the report store. Takes precedence
	// over StoreDir.
	Mongo string

	// MongoDB names the MongoDB database. Empty means DefaultMongoDB.
	MongoDB string

	// StoreDir is the directory for the file-based report store. When
	// both Mongo and StoreDir are empty no reports are persisted and the
	// report endpoints respond 503.
	StoreDir string

	// MaxUploadBytes caps inspect upload sizes. Zero means DefaultMaxUpload.
	MaxUploadBytes int64

	// CacheTTL bounds how long inspection responses stay cached. Zero
	// means entries never expire. Cached responses are keyed by content
	// digest, so expiry only trades storage against recomputation.
	CacheTTL time.Duration
}

func (cfg *Config) applyDefaults() {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUpload
	}
	if cfg.MongoDB == "" {
		cfg.MongoDB = DefaultMongoDB
	}
}

// Server is the wheelscan HTTP service.
type Server struct {
	cfg    Config
	logger *log.Logger
	cache  cache.Cache
	keyer  cache.Keyer
	store  store.Store

	// Concrete backend handles kept for health pings and shutdown.
	redis      *cache.RedisCache
	mongo      *store.MongoStore
	closeStore func() error
}

// New builds a server from cfg, connecting to the configured backends.
// Explicitly configured backends must be reachable; a missing store is
// not an error, it just disables persistence.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Server, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		keyer:  cache.NewDefaultKeyer(),
	}

	if cfg.Redis != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.cache, s.redis = rc, rc
		logger.Info("report cache: redis", "addr", cfg.Redis)
	} else {
		mc, err := cache.NewMemoryCache(0)
		if err != nil {
			return nil, err
		}
		s.cache = mc
		logger.Info("report cache: in-process")
	}

	switch {
	case cfg.Mongo != "":
		ms, err := store.NewMongoStore(ctx, cfg.Mongo, cfg.MongoDB)
		if err != nil {
			s.cache.Close()
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		s.store, s.mongo = ms, ms
		s.closeStore = func() error { return ms.Close(context.Background()) }
		logger.Info("report store: mongodb", "database", cfg.MongoDB)
	case cfg.StoreDir != "":
		fs, err := store.NewFileStore(cfg.StoreDir)
		if err != nil {
			s.cache.Close()
			return nil, fmt.Errorf("open report store: %w", err)
		}
		s.store = fs
		s.closeStore = fs.Close
		logger.Info("report store: files", "dir", fs.Path())
	default:
		logger.Info("report store: disabled")
	}

	registerHooks(logger)
	return s, nil
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealthz)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/inspect", s.handleInspect)
		r.Get("/schema", s.handleSchema)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.handleListReports)
			r.Get("/{id}", s.handleGetReport)
			r.Delete("/{id}", s.handleDeleteReport)
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully and
// releases the backends.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", s.cfg.Addr)

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.close()
	return err
}

func (s *Server) close() {
	if err := s.cache.Close(); err != nil {
		s.logger.Warn("close cache", "err", err)
	}
	if s.closeStore != nil {
		if err := s.closeStore(); err != nil {
			s.logger.Warn("close store", "err", err)
		}
	}
}
