// Package server serves the statistics dashboard and its JSON/CSV API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ppiankov/hevcstat/internal/cache"
	"github.com/ppiankov/hevcstat/internal/metrics"
	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/news"
)

// NewsSource supplies the news panel
type NewsSource interface {
	Latest(ctx context.Context, query string) ([]news.Entry, error)
}

// Options configures a Server
type Options struct {
	Addr        string
	CacheTTL    time.Duration
	CORSOrigins []string
	NewsQuery   string
	Version     string
}

// Server is the dashboard HTTP server
type Server struct {
	opts      Options
	store     *Store
	results   *cache.MemoryCache
	news      NewsSource
	metrics   *metrics.Metrics
	logger    *zap.Logger
	scheduler *Scheduler
}

// New creates a server for store. news and m may be nil.
func New(opts Options, store *Store, newsSource NewsSource, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{
		opts:    opts,
		store:   store,
		results: cache.NewMemoryCache(opts.CacheTTL, 2*opts.CacheTTL),
		news:    newsSource,
		metrics: m,
		logger:  logger,
	}
}

// Reload reloads the table and drops cached results
func (s *Server) Reload() (int, error) {
	n, err := s.store.Reload()
	if err != nil {
		return 0, err
	}
	_ = s.results.Clear()
	if s.metrics != nil {
		s.metrics.TableRecords.Set(float64(n))
	}
	s.logger.Info("table loaded", zap.Int("records", n))
	return n, nil
}

// Router builds the HTTP handler
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger, s.metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleDashboard)
	r.Get("/report", s.handleReport)
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/stats/{dimension}", s.handleStats)
		r.Get("/stats/{dimension}/csv", s.handleStatsCSV)
		r.Get("/patents", s.handlePatents)
		r.Get("/patents/csv", s.handlePatentsCSV)
		r.Get("/news", s.handleNews)
		r.Post("/reload", s.handleReload)
	})

	return r
}

// SetScheduler attaches a recrawl scheduler started and stopped with the server
func (s *Server) SetScheduler(sched *Scheduler) {
	s.scheduler = sched
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return err
		}
		defer s.scheduler.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// queryFrom reads filter parameters; absent ones mean no constraint
func queryFrom(r *http.Request) model.Query {
	v := r.URL.Query()
	return model.Query{
		Profile:  v.Get("profile"),
		Country:  v.Get("country"),
		Licensor: v.Get("licensor"),
		Inventor: v.Get("inventor"),
	}
}
