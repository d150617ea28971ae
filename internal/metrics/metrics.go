// Package metrics provides Prometheus instrumentation for the Bodleian
// server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	registry *prometheus.Registry

	// BorrowsTotal counts borrow attempts by result.
	BorrowsTotal *prometheus.CounterVec

	// ReturnsTotal counts return attempts by result.
	ReturnsTotal *prometheus.CounterVec

	// FinesAssessedTotal accumulates late fees charged at return time,
	// in currency units.
	FinesAssessedTotal prometheus.Counter

	// RequestDuration observes HTTP request latency by route and status.
	RequestDuration *prometheus.HistogramVec

	// ActiveSessions gauges the number of logins minus logouts.
	ActiveSessions prometheus.Gauge
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		BorrowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bodleian",
			Name:      "borrows_total",
			Help:      "Borrow attempts by result.",
		}, []string{"result"}),
		ReturnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bodleian",
			Name:      "returns_total",
			Help:      "Return attempts by result.",
		}, []string{"result"}),
		FinesAssessedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bodleian",
			Name:      "fines_assessed_total",
			Help:      "Total late fees charged, in currency units.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bodleian",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bodleian",
			Name:      "active_sessions",
			Help:      "Sessions created minus sessions destroyed.",
		}),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Result labels for the borrow/return counters.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)
