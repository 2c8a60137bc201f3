package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	apperrors "github.com/pscheid92/foodcart/internal/platform/errors"
	"golang.org/x/time/rate"
)

const rateLimiterExpiry = 5 * time.Minute

// newRateLimiter limits each client IP to ratePerSecond with the given burst.
func newRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			slog.InfoContext(c.Request().Context(), "Rate limit exceeded", "client_ip", identifier, "path", c.Path())
			return c.JSON(http.StatusTooManyRequests, apperrors.ErrorResponse{
				Error: "rate limit exceeded",
				Type:  apperrors.TypeUnavailable,
			})
		},
	})
}
