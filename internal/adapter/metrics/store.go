package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreMetrics tracks key-value backend commands.
type StoreMetrics struct {
	OpsTotal           *prometheus.CounterVec
	OpDuration         *prometheus.HistogramVec
	ConnectionErrors   prometheus.Counter
	BreakerState       prometheus.Gauge
	BreakerTransitions *prometheus.CounterVec
}

// NewStoreMetrics creates and registers store metrics for the named backend.
func NewStoreMetrics(reg prometheus.Registerer, backend string) *StoreMetrics {
	labels := prometheus.Labels{"backend": backend}
	m := &StoreMetrics{
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "store",
			Name:        "operations_total",
			Help:        "Store operations by command and status.",
			ConstLabels: labels,
		}, []string{"operation", "status"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "store",
			Name:        "operation_duration_seconds",
			Help:        "Store operation duration in seconds.",
			Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			ConstLabels: labels,
		}, []string{"operation"}),
		ConnectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "store",
			Name:        "connection_errors_total",
			Help:        "Failed connection attempts to the store backend.",
			ConstLabels: labels,
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "store",
			Name:        "circuit_breaker_state",
			Help:        "Circuit breaker state (0=closed, 1=half-open, 2=open).",
			ConstLabels: labels,
		}),
		BreakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "store",
			Name:        "circuit_breaker_transitions_total",
			Help:        "Circuit breaker state transitions by new state.",
			ConstLabels: labels,
		}, []string{"state"}),
	}

	reg.MustRegister(m.OpsTotal, m.OpDuration, m.ConnectionErrors, m.BreakerState, m.BreakerTransitions)
	return m
}
