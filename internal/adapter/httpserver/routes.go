package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/foodcart/internal/adapter/metrics"
	apperrors "github.com/pscheid92/foodcart/internal/platform/errors"
)

const maxBodySize = "64K"

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.httpMetrics.Middleware())
	s.echo.Use(apperrors.Middleware(s.httpMetrics.ErrorsTotal))
	s.echo.Use(middleware.BodyLimit(maxBodySize))
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         63072000, // 2 years; only sent over HTTPS
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	s.registerHealthRoutes()
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler(s.registry)))

	api := s.echo.Group("/api", newRateLimiter(s.config.RateLimitPerSecond, s.config.RateLimitBurst), s.restoredOnly)
	s.registerSessionRoutes(api)
	s.registerCartRoutes(api)

	s.registerStreamRoutes()
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health/live"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
