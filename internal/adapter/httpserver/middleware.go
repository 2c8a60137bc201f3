package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/foodcart/internal/platform/correlation"
	apperrors "github.com/pscheid92/foodcart/internal/platform/errors"
)

// correlationMiddleware adopts a sane inbound X-Correlation-ID or mints one,
// stores it on the request context and echoes it back.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.Accept(c.Request().Header.Get(correlation.HeaderName))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.HeaderName, id)
		return next(c)
	}
}

// restoredOnly rejects state-changing requests until the managers have loaded
// the persisted state. Reads pass and report isLoading.
func (s *Server) restoredOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		switch c.Request().Method {
		case http.MethodGet, http.MethodHead:
			return next(c)
		}
		if !s.ready() {
			return apperrors.UnavailableError("state is still loading", nil).
				WithContext("method", c.Request().Method)
		}
		return next(c)
	}
}
