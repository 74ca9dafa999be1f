package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vzahanych/forecast-history/internal/aggregator"
	"github.com/vzahanych/forecast-history/internal/config"
	"github.com/vzahanych/forecast-history/internal/export"
	"github.com/vzahanych/forecast-history/internal/observability"
	"github.com/vzahanych/forecast-history/internal/server/handlers"
	"github.com/vzahanych/forecast-history/internal/server/middlewares"
	"github.com/vzahanych/forecast-history/internal/server/templates"
	"github.com/vzahanych/forecast-history/pkg/telemetry"
	"go.uber.org/zap"
)

// Dependencies are the collaborators of the web shell. Clock and Gatherer
// default to the real clock and the default Prometheus registry.
type Dependencies struct {
	Aggregator *aggregator.Aggregator
	Logger     *zap.Logger
	Telemetry  *telemetry.Telemetry
	Metrics    *observability.Metrics
	Clock      clockwork.Clock
	Gatherer   prometheus.Gatherer
}

type Server struct {
	cfg    config.ServerConfig
	engine *gin.Engine
	server *http.Server
	deps   Dependencies
	logger *zap.Logger
}

func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetricsForTesting()
	}

	encoding, err := export.ParseEncoding(cfg.Export.CSVEncoding)
	if err != nil {
		return nil, err
	}

	pages, err := templates.Load()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.SetHTMLTemplate(pages)

	engine.Use(middlewares.RequestIDMiddleware(deps.Logger))
	engine.Use(middlewares.LoggingMiddleware(deps.Logger, "/health", "/health/live", "/health/ready", "/metrics"))
	engine.Use(middlewares.RecoveryMiddleware(deps.Logger, true))
	engine.Use(middlewares.TelemetryMiddleware(deps.Logger, deps.Telemetry))
	engine.Use(middlewares.NewMetricsMiddleware(deps.Logger, deps.Metrics).Handler())

	s := &Server{
		cfg:    cfg.Server,
		engine: engine,
		deps:   deps,
		logger: deps.Logger,
	}
	s.setupRoutes(encoding)

	return s, nil
}

func (s *Server) setupRoutes(encoding export.Encoding) {
	forecast := handlers.NewForecastHandler(s.deps.Aggregator, s.deps.Clock, encoding, s.logger)

	// Interactive pages
	s.engine.GET("/", forecast.Index)
	s.engine.GET("/forecast", forecast.Forecast)

	// API
	api := s.engine.Group("/api")
	api.GET("/stations", forecast.Stations)
	api.GET("/forecast", forecast.ForecastJSON)
	api.GET("/forecast/csv", forecast.ForecastCSV)
	api.GET("/forecast/chart/:kind", forecast.ForecastChart)

	// Health endpoints (Kubernetes friendly)
	health := handlers.NewHealthHandler(s.logger, s.deps.Clock)
	s.engine.GET("/health", health.Health)
	s.engine.GET("/health/live", health.Liveness)
	s.engine.GET("/health/ready", health.Readiness)

	// Monitoring endpoints
	s.engine.GET("/metrics", handlers.NewMetricsHandler(s.logger, s.deps.Gatherer).ServeMetrics)
}

// Handler exposes the routed engine, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.engine,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeout) * time.Second,
	}

	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
