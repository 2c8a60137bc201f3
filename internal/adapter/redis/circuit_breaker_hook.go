package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/foodcart/internal/adapter/metrics"
)

const (
	breakerFailureThreshold = 5
	breakerDelay            = 30 * time.Second
	fallbackTTL             = 5 * time.Minute
)

// CircuitBreakerHook implements redis.Hook and stops sending commands to Redis
// after repeated failures. While open, GET is answered from values seen during
// the last fallbackTTL; writes fail fast with circuitbreaker.ErrOpen.
type CircuitBreakerHook struct {
	cb    circuitbreaker.CircuitBreaker[any]
	cache *readCache
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

// NewCircuitBreakerHook opens after 5 consecutive failures, probes again after
// 30s and closes on the first successful probe.
func NewCircuitBreakerHook(m *metrics.StoreMetrics) *CircuitBreakerHook {
	return newCircuitBreakerHook(m, breakerDelay)
}

func newCircuitBreakerHook(m *metrics.StoreMetrics, delay time.Duration) *CircuitBreakerHook {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(breakerFailureThreshold).
		WithDelay(delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "redis",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			m.BreakerTransitions.WithLabelValues(e.NewState.String()).Inc()
			m.BreakerState.Set(stateToFloat(e.NewState))
		}).
		Build()

	return &CircuitBreakerHook{
		cb:    cb,
		cache: &readCache{values: make(map[string]cachedValue)},
	}
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if !h.cb.TryAcquirePermit() {
			return nil, fmt.Errorf("circuit breaker dial failed: %w", circuitbreaker.ErrOpen)
		}
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.cb.RecordError(err)
			return nil, fmt.Errorf("circuit breaker dial failed: %w", err)
		}
		h.cb.RecordSuccess()
		return conn, nil
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		if !h.cb.TryAcquirePermit() {
			return h.fallback(cmd)
		}

		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, goredis.Nil) {
			h.cb.RecordError(err)
			return fmt.Errorf("circuit breaker process failed: %w", err)
		}
		h.cb.RecordSuccess()
		h.remember(cmd)

		// redis.Nil must pass through unwrapped; callers compare against it.
		return err
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		if !h.cb.TryAcquirePermit() {
			return fmt.Errorf("redis circuit breaker open: %w", circuitbreaker.ErrOpen)
		}

		err := next(ctx, cmds)
		if err != nil {
			h.cb.RecordError(err)
			return fmt.Errorf("circuit breaker pipeline failed: %w", err)
		}
		h.cb.RecordSuccess()
		return nil
	}
}

// State returns the current breaker state.
func (h *CircuitBreakerHook) State() circuitbreaker.State {
	return h.cb.State()
}

func (h *CircuitBreakerHook) fallback(cmd goredis.Cmder) error {
	if cmd.Name() == "get" {
		if c, ok := cmd.(*goredis.StringCmd); ok {
			if value, hit := h.cache.get(keyOf(cmd)); hit {
				slog.Debug("Circuit breaker open, serving from cache", "command", "get")
				c.SetVal(value)
				return nil
			}
		}
		return fmt.Errorf("redis circuit breaker open and no cached value: %w", circuitbreaker.ErrOpen)
	}

	slog.Warn("Circuit breaker open, rejecting command", "command", cmd.Name())
	return fmt.Errorf("redis circuit breaker open: %w", circuitbreaker.ErrOpen)
}

// remember keeps the cache in step with successful commands so a fallback
// never returns a value that was overwritten or deleted since.
func (h *CircuitBreakerHook) remember(cmd goredis.Cmder) {
	key := keyOf(cmd)
	if key == "" {
		return
	}

	switch cmd.Name() {
	case "get":
		c, ok := cmd.(*goredis.StringCmd)
		if !ok {
			return
		}
		if value, err := c.Result(); err == nil {
			h.cache.put(key, value)
		} else {
			h.cache.drop(key)
		}
	case "set":
		args := cmd.Args()
		if len(args) >= 3 {
			h.cache.put(key, fmt.Sprint(args[2]))
		}
	case "del":
		for _, arg := range cmd.Args()[1:] {
			h.cache.drop(fmt.Sprint(arg))
		}
	}
}

func keyOf(cmd goredis.Cmder) string {
	args := cmd.Args()
	if len(args) < 2 {
		return ""
	}
	return fmt.Sprint(args[1])
}

type readCache struct {
	mu     sync.RWMutex
	values map[string]cachedValue
}

type cachedValue struct {
	data      string
	timestamp time.Time
}

func (c *readCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.values[key]
	if !ok || time.Since(cached.timestamp) > fallbackTTL {
		return "", false
	}
	return cached.data, true
}

func (c *readCache) put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = cachedValue{data: value, timestamp: time.Now()}
}

func (c *readCache) drop(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}
