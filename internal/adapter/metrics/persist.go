package metrics

import "github.com/prometheus/client_golang/prometheus"

// PersistMetrics tracks the detached write-behind queue.
type PersistMetrics struct {
	Writes    *prometheus.CounterVec
	Coalesced prometheus.Counter
	Dropped   prometheus.Counter
	InFlight  prometheus.Gauge
	Duration  *prometheus.HistogramVec
}

// NewPersistMetrics creates and registers persistence metrics on the given registry.
func NewPersistMetrics(reg prometheus.Registerer) *PersistMetrics {
	m := &PersistMetrics{
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "writes_total",
			Help:      "Completed store writes by operation (set/delete) and status.",
		}, []string{"operation", "status"}),
		Coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "coalesced_total",
			Help:      "Queued writes superseded by a newer value before they ran.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "dropped_total",
			Help:      "Writes rejected because the queue was closed.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "in_flight_keys",
			Help:      "Keys with a write currently running or queued.",
		}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "write_duration_seconds",
			Help:      "Duration of store writes including retries.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),
	}

	reg.MustRegister(m.Writes, m.Coalesced, m.Dropped, m.InFlight, m.Duration)
	return m
}
