package httpserver

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/foodcart/internal/domain"
	"github.com/pscheid92/foodcart/internal/platform/config"
	"github.com/pscheid92/foodcart/internal/watch"
)

// --- Mock implementations ---

type mockCartService struct {
	snapshotFn       func() domain.CartSnapshot
	canAddFn         func(restaurantID int) bool
	addToCartFn      func(line domain.CartLine, quantity int) (domain.AddResult, error)
	confirmReplaceFn func(pending domain.PendingAdd) error
	removeFn         func(productID string)
	updateQuantityFn func(productID string, quantity int) error
	clearFn          func()
	subscribeFn      func() *watch.Subscription[domain.CartSnapshot]
}

func (m *mockCartService) Snapshot() domain.CartSnapshot {
	if m.snapshotFn != nil {
		return m.snapshotFn()
	}
	return domain.CartSnapshot{Items: []domain.CartLine{}}
}

func (m *mockCartService) CanAddToCart(restaurantID int) bool {
	if m.canAddFn != nil {
		return m.canAddFn(restaurantID)
	}
	return true
}

func (m *mockCartService) AddToCart(line domain.CartLine, quantity int) (domain.AddResult, error) {
	if m.addToCartFn != nil {
		return m.addToCartFn(line, quantity)
	}
	return domain.AddResult{Status: domain.AddAdded}, nil
}

func (m *mockCartService) ConfirmReplace(pending domain.PendingAdd) error {
	if m.confirmReplaceFn != nil {
		return m.confirmReplaceFn(pending)
	}
	return nil
}

func (m *mockCartService) RemoveFromCart(productID string) {
	if m.removeFn != nil {
		m.removeFn(productID)
	}
}

func (m *mockCartService) UpdateQuantity(productID string, quantity int) error {
	if m.updateQuantityFn != nil {
		return m.updateQuantityFn(productID, quantity)
	}
	return nil
}

func (m *mockCartService) ClearCart() {
	if m.clearFn != nil {
		m.clearFn()
	}
}

func (m *mockCartService) Subscribe() *watch.Subscription[domain.CartSnapshot] {
	if m.subscribeFn != nil {
		return m.subscribeFn()
	}
	return watch.NewHub[domain.CartSnapshot]().Subscribe()
}

type mockSessionService struct {
	snapshotFn  func() domain.Session
	signInFn    func(ctx context.Context, token string) error
	signOutFn   func(ctx context.Context)
	subscribeFn func() *watch.Subscription[domain.Session]
}

func (m *mockSessionService) Snapshot() domain.Session {
	if m.snapshotFn != nil {
		return m.snapshotFn()
	}
	return domain.Session{}
}

func (m *mockSessionService) SignIn(ctx context.Context, token string) error {
	if m.signInFn != nil {
		return m.signInFn(ctx, token)
	}
	return nil
}

func (m *mockSessionService) SignOut(ctx context.Context) {
	if m.signOutFn != nil {
		m.signOutFn(ctx)
	}
}

func (m *mockSessionService) Subscribe() *watch.Subscription[domain.Session] {
	if m.subscribeFn != nil {
		return m.subscribeFn()
	}
	return watch.NewHub[domain.Session]().Subscribe()
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:             "development",
		Port:               "0",
		AppURL:             "https://shop.example.com",
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
	}
}

func newTestServer(t *testing.T, cart cartService, session sessionService, opts ...func(*Server)) *Server {
	t.Helper()

	if cart == nil {
		cart = &mockCartService{}
	}
	if session == nil {
		session = &mockSessionService{}
	}

	srv := NewServer(testConfig(), cart, session, func() bool { return true }, prometheus.NewRegistry(), nil)
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withReady(ready func() bool) func(*Server) {
	return func(s *Server) {
		s.ready = ready
	}
}

func withClock(clock clockwork.Clock) func(*Server) {
	return func(s *Server) {
		s.clock = clock
	}
}

// do sends a request through the full middleware stack.
func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}
