// Package metrics holds the Prometheus instrumentation for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the HTTP service and the engine.
// Metrics live in their own registry so several instances can coexist in one
// process.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	RequestsInFlight  prometheus.Gauge
	ComputationsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns all metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quantdesk_http_requests_total",
			Help: "Total HTTP requests served (by route, method and status)",
		}, []string{"route", "method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quantdesk_http_request_duration_seconds",
			Help:    "HTTP request latency (by route)",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quantdesk_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
		ComputationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quantdesk_computations_total",
			Help: "Engine computations run (by operation)",
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.ComputationsTotal,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveComputation records one engine computation.
func (m *Metrics) ObserveComputation(operation string) {
	m.ComputationsTotal.WithLabelValues(operation).Inc()
}
