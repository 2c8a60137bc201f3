package metrics

import "github.com/prometheus/client_golang/prometheus"

// StreamMetrics holds Prometheus metrics for the websocket change streams.
type StreamMetrics struct {
	ActiveStreams *prometheus.GaugeVec
	MessagesSent  *prometheus.CounterVec
	PingFailures  prometheus.Counter
}

// NewStreamMetrics creates and registers stream metrics on the given registry.
func NewStreamMetrics(reg prometheus.Registerer) *StreamMetrics {
	m := &StreamMetrics{
		ActiveStreams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_streams",
			Help:      "Number of open change streams by topic.",
		}, []string{"topic"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_sent_total",
			Help:      "Snapshots written to change streams by topic.",
		}, []string{"topic"}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "ping_failures_total",
			Help:      "Pings that could not be written to a stream client.",
		}),
	}

	reg.MustRegister(m.ActiveStreams, m.MessagesSent, m.PingFailures)
	return m
}
