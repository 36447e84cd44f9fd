// Package server exposes the engine over HTTP: task submission, status,
// results, guidance, the blueprint catalog and Prometheus metrics.
//
// Import rules:
//   - CAN import: internal/task, internal/blueprint, internal/domain, internal/errors
//   - MUST NOT import: internal/cli
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/evo/internal/blueprint"
	"github.com/mrz1836/evo/internal/domain"
	"github.com/mrz1836/evo/internal/task"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Engine is the part of task.Engine the API serves.
type Engine interface {
	Start(ctx context.Context, req task.StartRequest) (string, error)
	GetStatus(id string) (domain.StatusSnapshot, error)
	GetResults(id string) (domain.ResultsView, error)
	ProvideGuidance(id, text string) (domain.GuidanceAck, error)
	List() []domain.StatusSnapshot
}

var _ Engine = (*task.Engine)(nil)

// Server is the HTTP API.
type Server struct {
	engine     Engine
	blueprints *blueprint.Registry
	gatherer   prometheus.Gatherer
	logger     zerolog.Logger
	debug      bool
	router     *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger.With().Str("component", "server").Logger() }
}

// WithGatherer sets the registry /metrics serves. Default prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithDebug enables gin debug mode.
func WithDebug(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// New builds the router.
func New(engine Engine, blueprints *blueprint.Registry, opts ...Option) *Server {
	s := &Server{
		engine:     engine,
		blueprints: blueprints,
		gatherer:   prometheus.DefaultGatherer,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.blueprints == nil {
		s.blueprints = blueprint.NewRegistry()
	}

	if !s.debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.GET("/blueprints", s.listBlueprints)
	v1.POST("/tasks", s.createTask)
	v1.GET("/tasks", s.listTasks)
	v1.GET("/tasks/:id", s.getStatus)
	v1.GET("/tasks/:id/results", s.getResults)
	v1.POST("/tasks/:id/guidance", s.provideGuidance)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		s.logger.Info().Msg("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		if status >= http.StatusInternalServerError {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
