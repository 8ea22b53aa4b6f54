package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/stratus-data/stratus/pkg/config"
	"github.com/stratus-data/stratus/pkg/dashboard"
)

// MetricsProvider supplies the pre-aggregated daily metric rows. The
// warehouse client implements it; tests substitute an in-memory one.
type MetricsProvider interface {
	DailyMetrics(ctx context.Context, database, schema, table string) ([]dashboard.DailyMetric, error)
}

// Service is the HTTP API server.
type Service struct {
	cfg      Config
	store    *config.Store
	provider MetricsProvider
	app      *fiber.App
	server   *http.Server
	log      *zap.Logger
}

// NewService builds the API service and registers all routes.
func NewService(cfg Config, store *config.Store, provider MetricsProvider, log *zap.Logger) *Service {
	s := &Service{
		cfg:      cfg.withDefaults(),
		store:    store,
		provider: provider,
		log:      log.Named("api"),
	}

	app := fiber.New(fiber.Config{
		AppName:      "Stratus API",
		ErrorHandler: errorHandler,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	app.Use(s.requestLogger())

	v1 := app.Group("/api/v1")
	v1.Get("/metrics", s.handleMetrics)
	v1.Get("/summary", s.handleSummary)
	v1.Get("/correlations", s.handleCorrelations)
	v1.Get("/export", s.handleExport)
	v1.Get("/config/summary", s.handleConfigSummary)
	v1.Get("/config/quality", s.handleConfigQuality)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.app = app
	return s
}

// Handler exposes the fiber app, used by tests to drive requests
// without a listener.
func (s *Service) Handler() *fiber.App {
	return s.app
}

// Start runs the server until ctx is canceled.
func (s *Service) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           adaptor.FiberApp(s.app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting API server", zap.String("addr", s.cfg.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop gracefully shuts the server down.
func (s *Service) Stop() error {
	if s.server == nil {
		return nil
	}

	s.log.Info("stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}
