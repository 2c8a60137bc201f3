package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/foodcart/internal/adapter/metrics"
)

// NewClient parses redisURL (e.g. "redis://localhost:6379/0"), installs the
// metrics and circuit breaker hooks and verifies the connection.
func NewClient(ctx context.Context, redisURL string, m *metrics.StoreMetrics) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	rdb.AddHook(NewMetricsHook(m))
	rdb.AddHook(NewCircuitBreakerHook(m))

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	slog.Info("Redis connected", "addr", opts.Addr, "db", opts.DB)
	return rdb, nil
}
