package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/foodcart/internal/adapter/metrics"
	"github.com/pscheid92/foodcart/internal/domain"
	"github.com/pscheid92/foodcart/internal/platform/config"
	"github.com/pscheid92/foodcart/internal/watch"
)

type cartService interface {
	Snapshot() domain.CartSnapshot
	CanAddToCart(restaurantID int) bool
	AddToCart(line domain.CartLine, quantity int) (domain.AddResult, error)
	ConfirmReplace(pending domain.PendingAdd) error
	RemoveFromCart(productID string)
	UpdateQuantity(productID string, quantity int) error
	ClearCart()
	Subscribe() *watch.Subscription[domain.CartSnapshot]
}

type sessionService interface {
	Snapshot() domain.Session
	SignIn(ctx context.Context, token string) error
	SignOut(ctx context.Context)
	Subscribe() *watch.Subscription[domain.Session]
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	cart    cartService
	session sessionService
	ready   func() bool

	registry      *prometheus.Registry
	httpMetrics   *metrics.HTTPMetrics
	streamMetrics *metrics.StreamMetrics

	upgrader     websocket.Upgrader
	clock        clockwork.Clock
	closing      chan struct{}
	closeOnce    sync.Once
	streams      atomic.Int64
	healthChecks []HealthCheck
	startTime    time.Time
}

// NewServer wires the HTTP surface. Until ready reports true, /health/ready
// answers loading and state-changing /api requests get 503.
func NewServer(cfg *config.Config, cart cartService, session sessionService, ready func() bool, reg *prometheus.Registry, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:          e,
		config:        cfg,
		cart:          cart,
		session:       session,
		ready:         ready,
		registry:      reg,
		httpMetrics:   metrics.NewHTTPMetrics(reg),
		streamMetrics: metrics.NewStreamMetrics(reg),
		upgrader: websocket.Upgrader{
			CheckOrigin: newCheckOrigin(cfg.AppURL, !cfg.IsProduction()),
		},
		clock:        clockwork.NewRealClock(),
		closing:      make(chan struct{}),
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown closes open change streams and then drains HTTP requests.
// Hijacked websocket connections are not tracked by echo, so they are
// signalled separately.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })

	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) openStreams() int64 {
	return s.streams.Load()
}
