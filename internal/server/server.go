// Package server provides the HTTP trigger surface for the competition pipeline.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jonathan/competition-radar/internal/db"
	"github.com/jonathan/competition-radar/internal/pipeline"
	"github.com/jonathan/competition-radar/internal/types"
)

// Ingester runs one ingestion, reporting stage progress to onProgress when it is non-nil.
type Ingester interface {
	RunWithProgress(ctx context.Context, onProgress pipeline.ProgressCallback) (*types.IngestSummary, error)
}

// Store is the read side used by health and listing endpoints.
type Store interface {
	Ping(ctx context.Context) error
	ListRuns(ctx context.Context, filters db.RunFilters) ([]db.Run, error)
	ListCompetitions(ctx context.Context, filters db.CompetitionFilters) ([]types.Competition, error)
}

// Config holds server configuration
type Config struct {
	Addr string
	// ScrapeInterval enables the in-process scrape ticker when positive.
	ScrapeInterval time.Duration
	// TriggersPerMinute caps POST requests to the trigger endpoints; zero disables the cap.
	TriggersPerMinute int
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	ingester   Ingester
	bus        *pipeline.Bus
	store      Store
	cfg        Config
	limiter    *rate.Limiter
	scraping   atomic.Bool
	logger     *slog.Logger
}

// New creates a new server instance. Enrichment happens in whatever subscribes to bus.
func New(cfg Config, ingester Ingester, bus *pipeline.Bus, store Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ingester: ingester,
		bus:      bus,
		store:    store,
		cfg:      cfg,
		logger:   logger.With("component", "server"),
	}
	if cfg.TriggersPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.TriggersPerMinute)), cfg.TriggersPerMinute)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.withLogging())

	r.GET("/healthz", s.handleHealth)
	r.GET("/runs", s.handleListRuns)
	r.GET("/competitions", s.handleListCompetitions)

	triggers := r.Group("/")
	triggers.Use(s.withRateLimit())
	{
		triggers.POST("/triggers/scrape", s.handleScrape)
		triggers.POST("/events/admitted", s.handleAdmitted)
	}

	s.engine = r
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute, // synchronous scrape triggers run the whole ingestion
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is cancelled, then shuts down gracefully and waits for
// in-flight event handlers.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.cfg.ScrapeInterval > 0 {
		go s.runTicker(ctx)
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if s.bus != nil {
		s.bus.Wait()
	}
	s.logger.Info("server stopped")
	return nil
}

// runTicker fires the scrape trigger every ScrapeInterval until ctx is done.
func (s *Server) runTicker(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ScrapeInterval)
	defer ticker.Stop()

	s.logger.Info("scrape ticker enabled", "interval", s.cfg.ScrapeInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.scrape(ctx, nil); err != nil {
				s.logger.Error("scheduled scrape failed", "error", err)
			}
		}
	}
}

// errScrapeRunning is returned when a scrape is requested while one is in progress.
var errScrapeRunning = errors.New("a scrape is already running")

// scrape runs one ingestion unless one is already in progress.
func (s *Server) scrape(ctx context.Context, onProgress pipeline.ProgressCallback) (*types.IngestSummary, error) {
	if !s.scraping.CompareAndSwap(false, true) {
		return nil, errScrapeRunning
	}
	defer s.scraping.Store(false)
	return s.ingester.RunWithProgress(ctx, onProgress)
}

// withLogging adds request logging
func (s *Server) withLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// withRateLimit caps the trigger endpoints.
func (s *Server) withRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			c.Header("Retry-After", "60")
			s.errorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
