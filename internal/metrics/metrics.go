package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	editorEvents        *prometheus.CounterVec
	mutationsTotal      *prometheus.CounterVec
	mutationDuration    *prometheus.HistogramVec
	sessionsActive      prometheus.Gauge
}

// New creates a fresh Metrics registry with HTTP, editor and mutation metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topology",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by the editor service",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "topology",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by the editor service",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	editorEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topology",
		Name:      "editor_events_total",
		Help:      "Pointer events interpreted by the mode controller, by mode and outcome",
	}, []string{"mode", "outcome"})

	mutationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topology",
		Name:      "mutations_total",
		Help:      "Store mutations dispatched by editor sessions, by operation and result",
	}, []string{"op", "result"})

	mutationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "topology",
		Name:      "mutation_duration_seconds",
		Help:      "Duration of dispatched store mutations",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"op"})

	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "topology",
		Name:      "editor_sessions_active",
		Help:      "Number of open editor sessions",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		editorEvents,
		mutationsTotal,
		mutationDuration,
		sessionsActive,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		editorEvents:        editorEvents,
		mutationsTotal:      mutationsTotal,
		mutationDuration:    mutationDuration,
		sessionsActive:      sessionsActive,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncEditorEvent counts one interpreted pointer event.
func (m *Metrics) IncEditorEvent(mode, outcome string) {
	if m == nil {
		return
	}
	m.editorEvents.WithLabelValues(mode, outcome).Inc()
}

// ObserveMutation records a finished store mutation. A nil err counts as "ok".
func (m *Metrics) ObserveMutation(op string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.mutationsTotal.WithLabelValues(op, result).Inc()
	m.mutationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// IncMutationRejected counts a mutation that never ran because the queue was full.
func (m *Metrics) IncMutationRejected(op string) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(op, "rejected").Inc()
}

func (m *Metrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
