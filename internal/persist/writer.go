// Package persist writes state to a KeyValueStore in the background.
//
// Callers hand over the desired value of a key and return immediately. At most one
// write per key is in flight; requests that arrive meanwhile collapse into the newest
// one, so a key is never written out of order.
package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pscheid92/foodcart/internal/adapter/metrics"
	"github.com/pscheid92/foodcart/internal/domain"
	"github.com/pscheid92/foodcart/internal/platform/retry"
)

const (
	defaultWriteTimeout = 2 * time.Second
	defaultMaxAttempts  = 3
	defaultBackoff      = 50 * time.Millisecond
	defaultMaxBackoff   = 500 * time.Millisecond
)

type opKind int

const (
	opSet opKind = iota
	opDelete
)

func (k opKind) String() string {
	if k == opDelete {
		return "delete"
	}
	return "set"
}

type op struct {
	kind  opKind
	value string
}

// slot tracks one key: the write currently running and the newest one waiting.
type slot struct {
	pending *op
}

// Writer is a per-key, latest-wins write-behind queue.
type Writer struct {
	store        domain.KeyValueStore
	metrics      *metrics.PersistMetrics
	writeTimeout time.Duration
	policy       retry.Policy

	mu     sync.Mutex
	slots  map[string]*slot
	idle   chan struct{} // closed while no slot is active
	closed bool
}

type Option func(*Writer)

// WithWriteTimeout bounds a single store write.
func WithWriteTimeout(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.writeTimeout = d
		}
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(w *Writer) { w.policy = p }
}

// NewWriter returns an idle writer for store. Writes time out after two seconds
// and are tried three times unless opts say otherwise.
func NewWriter(store domain.KeyValueStore, m *metrics.PersistMetrics, opts ...Option) *Writer {
	idle := make(chan struct{})
	close(idle)

	w := &Writer{
		store:        store,
		metrics:      m,
		writeTimeout: defaultWriteTimeout,
		policy: retry.Policy{
			MaxAttempts:    defaultMaxAttempts,
			InitialBackoff: defaultBackoff,
			MaxBackoff:     defaultMaxBackoff,
		},
		slots: make(map[string]*slot),
		idle:  idle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Put schedules key to be set to value.
func (w *Writer) Put(key, value string) {
	w.enqueue(key, op{kind: opSet, value: value})
}

// Delete schedules key to be removed.
func (w *Writer) Delete(key string) {
	w.enqueue(key, op{kind: opDelete})
}

func (w *Writer) enqueue(key string, next op) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.metrics.Dropped.Inc()
		slog.Warn("Persistence queue closed, dropping write", "key", key, "operation", next.kind.String())
		return
	}

	if s, active := w.slots[key]; active {
		if s.pending != nil {
			w.metrics.Coalesced.Inc()
		}
		s.pending = &next
		return
	}

	if len(w.slots) == 0 {
		w.idle = make(chan struct{})
	}
	w.slots[key] = &slot{pending: &next}
	w.metrics.InFlight.Inc()
	go w.drain(key)
}

// drain runs writes for key until no newer value is waiting.
func (w *Writer) drain(key string) {
	for {
		w.mu.Lock()
		s := w.slots[key]
		next := s.pending
		s.pending = nil
		if next == nil {
			delete(w.slots, key)
			w.metrics.InFlight.Dec()
			if len(w.slots) == 0 {
				close(w.idle)
			}
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		w.write(key, *next)
	}
}

func (w *Writer) write(key string, o op) {
	start := time.Now()
	base := context.Background()
	err := retry.DoVoid(base, w.policy, retry.TransientWithin(base), func() error {
		ctx, cancel := context.WithTimeout(base, w.writeTimeout)
		defer cancel()

		if o.kind == opDelete {
			return w.store.Delete(ctx, key)
		}
		return w.store.Set(ctx, key, o.value)
	})
	w.metrics.Duration.WithLabelValues(o.kind.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		w.metrics.Writes.WithLabelValues(o.kind.String(), "error").Inc()
		slog.Error("Failed to persist state", "key", key, "operation", o.kind.String(), "error", err)
		return
	}
	w.metrics.Writes.WithLabelValues(o.kind.String(), "success").Inc()
}

// Flush blocks until every queued write has completed or ctx ends.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	idle := w.idle
	w.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further writes and flushes the ones already queued.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	return w.Flush(ctx)
}
