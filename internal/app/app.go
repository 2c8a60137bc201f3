package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pscheid92/foodcart/internal/adapter/metrics"
	"github.com/pscheid92/foodcart/internal/cart"
	"github.com/pscheid92/foodcart/internal/claims"
	"github.com/pscheid92/foodcart/internal/domain"
	"github.com/pscheid92/foodcart/internal/persist"
	"github.com/pscheid92/foodcart/internal/session"
)

type Options struct {
	// PersistTimeout bounds a single background store write. Zero keeps the
	// writer default.
	PersistTimeout time.Duration
	// Decode overrides claims.Decode.
	Decode domain.ClaimsDecoder
}

type App struct {
	Session *session.Manager
	Cart    *cart.Manager

	writer   *persist.Writer
	restored atomic.Bool
}

func New(store domain.KeyValueStore, m *metrics.PersistMetrics, opts Options) *App {
	decode := opts.Decode
	if decode == nil {
		decode = claims.Decode
	}

	writer := persist.NewWriter(store, m, persist.WithWriteTimeout(opts.PersistTimeout))

	return &App{
		Session: session.NewManager(store, writer, decode),
		Cart:    cart.NewManager(store, writer),
		writer:  writer,
	}
}

// Restore loads both managers concurrently. The managers degrade read failures
// to empty state, so the only error is a cancelled ctx.
func (a *App) Restore(ctx context.Context) error {
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Session.Restore(gctx)
		return nil
	})
	g.Go(func() error {
		a.Cart.Restore(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("restore interrupted: %w", err)
	}

	a.restored.Store(true)
	slog.Info("Client state restored", "duration", time.Since(start))
	return nil
}

// Ready reports whether Restore has completed.
func (a *App) Ready() bool {
	return a.restored.Load()
}

// Flush waits for queued session and cart writes.
func (a *App) Flush(ctx context.Context) error {
	return a.writer.Flush(ctx)
}

// Stop refuses further background writes and flushes the queued ones.
func (a *App) Stop(ctx context.Context) error {
	if err := a.writer.Close(ctx); err != nil {
		return fmt.Errorf("failed to flush pending writes: %w", err)
	}
	slog.Info("Persistence queue drained")
	return nil
}
