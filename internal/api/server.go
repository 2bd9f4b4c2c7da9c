// Package api exposes the donor mapping and semantic mapping operations over
// HTTP using echo.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/mapping"
	"fjacquet/donor-mapper/internal/metrics"
	"fjacquet/donor-mapper/internal/store"
)

// DefaultRequestTimeout bounds a single request when no timeout is configured.
const DefaultRequestTimeout = 60 * time.Second

// Controller holds the dependencies shared by all route handlers.
type Controller struct {
	Echo      *echo.Echo
	Store     *store.Store
	Suggester *mapping.Suggester
	Metrics   *metrics.MappingMetrics
	logger    logging.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics exposes m on /metrics.
func WithMetrics(m *metrics.MappingMetrics) Option {
	return func(c *Controller) {
		c.Metrics = m
	}
}

// WithLogger sets the logger used for request and error logging.
func WithLogger(logger logging.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New creates a Controller on a fresh echo instance and registers all routes.
func New(st *store.Store, suggester *mapping.Suggester, timeout time.Duration, opts ...Option) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	c := &Controller{
		Echo:      e,
		Store:     st,
		Suggester: suggester,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDiscard(c.logger).WithField(logging.FieldComponent, "api")

	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M"))
	e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{Timeout: timeout}))
	e.Use(c.requestLogger())

	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Echo.GET("/healthz", c.Health)
	c.Echo.GET("/metrics", echo.WrapHandler(c.Metrics.Handler()))

	donor := c.Echo.Group("/donor-mapping")
	c.initTemplateRoutes(donor)
	c.initDonorMappingRoutes(donor)

	c.initSemanticRoutes(c.Echo.Group("/semantic-mappings"))
}

func (c *Controller) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			c.logger.Debug("Request handled",
				logging.Field{Key: "method", Value: v.Method},
				logging.Field{Key: "uri", Value: v.URI},
				logging.Field{Key: "status", Value: v.Status},
				logging.Field{Key: logging.FieldDuration, Value: v.Latency})
			return nil
		},
	})
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status    string `json:"status"`
	Matcher   string `json:"matcher"`
	RuleBased bool   `json:"rule_based"`
}

// Health reports service liveness and database reachability.
func (c *Controller) Health(ctx echo.Context) error {
	sqlDB, err := c.Store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(ctx.Request().Context())
	}
	if err != nil {
		return c.HandleError(ctx, err, "Database unavailable", http.StatusServiceUnavailable)
	}
	return ctx.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Matcher:   c.Suggester.MatcherName(),
		RuleBased: c.Suggester.RuleBased(),
	})
}

// Start serves on address until ctx is cancelled, then shuts down gracefully.
func (c *Controller) Start(ctx context.Context, address string) error {
	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("HTTP server listening", logging.Field{Key: "address", Value: address})
		if err := c.Echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c.logger.Info("Shutting down HTTP server")
	if err := c.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
