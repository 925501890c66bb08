package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/medequip/internal/config"
	"github.com/Additional-Code/medequip/internal/database"
	"github.com/Additional-Code/medequip/internal/observability"
)

const healthTimeout = 2 * time.Second

// Module exposes the HTTP server lifecycle to Fx.
var Module = fx.Module("http_server",
	fx.Provide(NewEcho),
	fx.Invoke(Run),
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Params defines dependencies for the Echo router.
type Params struct {
	fx.In

	Config        config.Config
	Logger        *zap.Logger
	Database      *database.Connections
	Observability *observability.Manager `optional:"true"`
}

// NewEcho configures the Echo router with request ids, recovery and health checks.
func NewEcho(p Params) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		p.Logger.Error("http request failed",
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err),
		)
		c.Echo().DefaultHTTPErrorHandler(err, c)
	}

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())

	obs := p.Observability
	if obs != nil && obs.TracingEnabled() {
		e.Use(otelecho.Middleware(p.Config.Observability.ServiceName))
	}

	e.GET("/health", Health(p.Database.Driver, p.Database))

	if obs != nil && obs.MetricsEnabled() && obs.MetricsHandler() != nil {
		e.GET(obs.PrometheusPath(), echo.WrapHandler(obs.MetricsHandler()))
	}

	return e
}

// Health reports service liveness together with database reachability.
func Health(driver string, db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()

		status, dbStatus, code := "ok", "up", http.StatusOK
		if err := db.Ping(ctx); err != nil {
			status, dbStatus, code = "degraded", "down", http.StatusServiceUnavailable
		}
		return c.JSON(code, map[string]string{
			"status":   status,
			"driver":   driver,
			"database": dbStatus,
		})
	}
}

// Run starts the HTTP server and ties it to the Fx lifecycle.
func Run(lc fx.Lifecycle, cfg config.Config, e *echo.Echo, logger *zap.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting HTTP server", zap.String("addr", addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server")
			return server.Shutdown(ctx)
		},
	})
}
