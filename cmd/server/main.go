package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/foodcart/internal/adapter/httpserver"
	"github.com/pscheid92/foodcart/internal/adapter/memory"
	"github.com/pscheid92/foodcart/internal/adapter/metrics"
	"github.com/pscheid92/foodcart/internal/adapter/postgres"
	"github.com/pscheid92/foodcart/internal/adapter/redis"
	"github.com/pscheid92/foodcart/internal/app"
	"github.com/pscheid92/foodcart/internal/domain"
	"github.com/pscheid92/foodcart/internal/platform/config"
	"github.com/pscheid92/foodcart/internal/platform/logging"
	"github.com/pscheid92/foodcart/internal/platform/version"
)

const (
	connectTimeout  = 10 * time.Second
	restoreTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

type storage interface {
	domain.KeyValueStore
	domain.Pinger
}

type backend struct {
	store storage
	close func()
}

func runGracefulShutdown(srv *httpserver.Server, application *app.App) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		if err := application.Stop(shutdownCtx); err != nil {
			slog.Error("Failed to drain persistence queue", "error", err)
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupBackend(cfg *config.Config, reg prometheus.Registerer) backend {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	switch cfg.StorageBackend {
	case config.BackendRedis:
		client, err := redis.NewClient(ctx, cfg.RedisURL, metrics.NewStoreMetrics(reg, config.BackendRedis))
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		return backend{
			store: redis.NewStore(client, cfg.StorageNamespace),
			close: func() { _ = client.Close() },
		}

	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, metrics.NewStoreMetrics(reg, config.BackendPostgres))
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		return backend{
			store: postgres.NewStore(pool, cfg.StorageNamespace),
			close: pool.Close,
		}

	default:
		slog.Warn("Using in-memory storage, state is lost on restart")
		return backend{store: memory.NewStore(), close: func() {}}
	}
}

func main() {
	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "storage", cfg.StorageBackend, "version", version.Get().String())

	reg := metrics.NewRegistry()

	be := setupBackend(cfg, reg)
	defer be.close()

	application := app.New(be.store, metrics.NewPersistMetrics(reg), app.Options{
		PersistTimeout: cfg.PersistTimeout,
	})

	healthChecks := []httpserver.HealthCheck{
		{Name: cfg.StorageBackend, Check: be.store.Ping},
	}
	srv := httpserver.NewServer(cfg, application.Cart, application.Session, application.Ready, reg, healthChecks)

	// Restore runs behind the readiness probe and the /api mutation gate, so
	// liveness answers right away and no write can race the initial load.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		defer cancel()
		if err := application.Restore(ctx); err != nil {
			slog.Error("Failed to restore client state", "error", err)
		}
	}()

	done := runGracefulShutdown(srv, application)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
