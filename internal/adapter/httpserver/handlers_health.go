package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/foodcart/internal/platform/version"
)

const readinessProbeTimeout = 5 * time.Second

// HealthCheck is a named health check function.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.startTime).Seconds(),
		"streams": s.openStreams(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}

	return nil
}

// handleReadiness reports 503 until the cart and session state is restored,
// then runs the storage checks.
func (s *Server) handleReadiness(c echo.Context) error {
	if s.ready != nil && !s.ready() {
		if err := c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "loading"}); err != nil {
			return fmt.Errorf("failed to send JSON response: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	return s.runHealthChecks(c, ctx)
}

// runHealthChecks runs every check, even after a failure, so the response
// names all broken dependencies at once.
func (s *Server) runHealthChecks(c echo.Context, ctx context.Context) error {
	status := http.StatusOK
	results := make(map[string]string, len(s.healthChecks))

	for _, hc := range s.healthChecks {
		if err := hc.Check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[hc.Name] = err.Error()
			slog.WarnContext(ctx, "Health check failed", "check", hc.Name, "error", err)
			continue
		}
		results[hc.Name] = "ok"
	}

	response := healthResponse{Status: "ready", Checks: results}
	if status != http.StatusOK {
		response.Status = "unhealthy"
	}
	if err := c.JSON(status, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
