package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"

	"github.com/pscheid92/foodcart/internal/adapter/metrics"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	versionTable = "public.foodcart_schema_version"

	// Only a handful of keys are ever written, so the pool stays small unless
	// pool_max_conns is set in the URL.
	defaultMaxConns = 4

	// ASCII "foocar"; shared by every instance migrating the same database.
	migrationLockID   = 0x666f6f636172
	lockPollInterval  = 250 * time.Millisecond
	lockReleaseBudget = 5 * time.Second
)

// Connect opens a pool and verifies it. Every query is traced into m.
func Connect(ctx context.Context, databaseURL string, m *metrics.StoreMetrics) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if !strings.Contains(databaseURL, "pool_max_conns") {
		poolCfg.MaxConns = defaultMaxConns
	}
	poolCfg.ConnConfig.Tracer = NewMetricsTracer(m)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		m.ConnectionErrors.Inc()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected",
		"host", poolCfg.ConnConfig.Host,
		"database", poolCfg.ConnConfig.Database,
		"sslmode", extractSSLMode(databaseURL),
		"max_conns", poolCfg.MaxConns)
	return pool, nil
}

func extractSSLMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "unknown"
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "" {
		return "prefer (default)"
	}
	return mode
}

// RunMigrationsWithLock applies pending migrations while holding a
// session-level advisory lock. Instances that lose the race wait for the
// winner and then find nothing left to do.
func RunMigrationsWithLock(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migration: %w", err)
	}
	defer conn.Release()

	unlock, err := acquireMigrationLock(ctx, conn.Conn())
	if err != nil {
		return err
	}
	defer unlock()

	return runMigrations(ctx, conn.Conn())
}

func runMigrations(ctx context.Context, conn *pgx.Conn) error {
	migrationFS, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	migrator, err := migrate.NewMigrator(ctx, conn, versionTable)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := migrator.LoadMigrations(migrationFS); err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	from, err := migrator.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	target := int32(len(migrator.Migrations))
	if from == target {
		slog.Debug("Schema up to date", "version", from)
		return nil
	}

	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate from version %d: %w", from, err)
	}
	slog.Info("Schema migrated", "from", from, "to", target)
	return nil
}

// acquireMigrationLock polls pg_try_advisory_lock so a cancelled ctx is
// honoured while another instance migrates.
func acquireMigrationLock(ctx context.Context, conn *pgx.Conn) (unlock func(), err error) {
	for {
		var locked bool
		if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockID).Scan(&locked); err != nil {
			return nil, fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		if locked {
			break
		}

		slog.Debug("Waiting for migration lock")
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for migration lock: %w", ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), lockReleaseBudget)
		defer cancel()

		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			slog.Error("Failed to release migration lock", "error", err)
		}
	}, nil
}
