package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pscheid92/foodcart/internal/adapter/metrics"
)

// MetricsTracer implements pgx.QueryTracer to collect query metrics.
type MetricsTracer struct {
	m *metrics.StoreMetrics
}

var _ pgx.QueryTracer = (*MetricsTracer)(nil)

func NewMetricsTracer(m *metrics.StoreMetrics) *MetricsTracer {
	return &MetricsTracer{m: m}
}

type queryContextKey struct{}

type queryContext struct {
	startTime time.Time
	operation string
}

func (t *MetricsTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryContext{
		startTime: time.Now(),
		operation: operationName(data.SQL),
	})
}

func (t *MetricsTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}

	status := "success"
	if data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows) {
		status = "error"
	}

	t.m.OpsTotal.WithLabelValues(qctx.operation, status).Inc()
	t.m.OpDuration.WithLabelValues(qctx.operation).Observe(time.Since(qctx.startTime).Seconds())
}

// operationName reduces a statement to its lower-cased leading keyword so the
// label stays low-cardinality.
func operationName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}

	op := strings.ToLower(fields[0])
	if len(op) > 20 {
		op = op[:20]
	}
	return op
}
