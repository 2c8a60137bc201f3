package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Cart and session calls only touch memory, so the buckets start well below
// the prometheus defaults.
var httpBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}

// Routes with these prefixes are probes or long-lived streams.
var unmeteredPrefixes = []string{"/metrics", "/health/", "/ws/"}

const unmatchedRoute = "unmatched"

// HTTPMetrics holds Prometheus metrics for the JSON API.
type HTTPMetrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	InFlightGauge   prometheus.Gauge
	ErrorsTotal     *prometheus.CounterVec
}

// NewHTTPMetrics creates and registers HTTP metrics on the given registry.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	labels := []string{"method", "route", "status_code"}
	m := &HTTPMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of API requests by route template.",
			Buckets:   httpBuckets,
		}, labels),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by route template and status.",
		}, labels),
		InFlightGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "API requests currently being served.",
		}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Handler errors by error type.",
		}, []string{"type"}),
	}

	reg.MustRegister(m.RequestDuration, m.RequestsTotal, m.InFlightGauge, m.ErrorsTotal)
	return m
}

// Middleware records every API request under its route template, never the
// raw URL, so product ids do not blow up label cardinality.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if unmetered(route) {
				return next(c)
			}
			if route == "" {
				route = unmatchedRoute
			}

			m.InFlightGauge.Inc()
			start := time.Now()

			err := next(c)

			m.InFlightGauge.Dec()
			status := strconv.Itoa(c.Response().Status)
			m.RequestDuration.WithLabelValues(c.Request().Method, route, status).Observe(time.Since(start).Seconds())
			m.RequestsTotal.WithLabelValues(c.Request().Method, route, status).Inc()
			return err
		}
	}
}

func unmetered(route string) bool {
	for _, p := range unmeteredPrefixes {
		if strings.HasPrefix(route, p) {
			return true
		}
	}
	return false
}
