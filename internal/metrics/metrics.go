// Package metrics exposes Prometheus metrics for transfers and the file service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/filehop/filehop/internal/transfer"
)

// Byte directions for RecordBytes, seen from the file service.
const (
	BytesIn  = "in"
	BytesOut = "out"
)

// Metrics holds the collectors of one process. Each instance has its own
// registry so tests and embedded servers do not collide.
type Metrics struct {
	registry *prometheus.Registry

	transfersStarted  *prometheus.CounterVec
	transfersFinished *prometheus.CounterVec
	transfersActive   prometheus.Gauge

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	bytesTotal      *prometheus.CounterVec
}

// New creates the collectors, registered together with the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		transfersStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filehop_transfers_started_total",
				Help: "Transfers registered, by direction",
			},
			[]string{"direction"},
		),
		transfersFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filehop_transfers_finished_total",
				Help: "Transfers that reached a terminal state",
			},
			[]string{"direction", "status"},
		),
		transfersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "filehop_transfers_active",
				Help: "Transfers not yet finished",
			},
		),

		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filehop_fileservice_requests_total",
				Help: "File service requests, by route and status code",
			},
			[]string{"route", "code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filehop_fileservice_request_duration_seconds",
				Help:    "File service request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		bytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filehop_fileservice_bytes_total",
				Help: "File content bytes received (in) and served (out)",
			},
			[]string{"direction"},
		),
	}
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TaskChanged implements transfer.Observer.
func (m *Metrics) TaskChanged(c transfer.Change) {
	dir := string(c.Task.Direction)
	switch c.Kind {
	case transfer.ChangeAdded:
		m.transfersStarted.WithLabelValues(dir).Inc()
		if !c.Task.IsTerminal() {
			m.transfersActive.Inc()
		}
	case transfer.ChangeUpdated:
		// The store freezes finished tasks, so a terminal update is the transition.
		if c.Task.IsTerminal() {
			m.transfersFinished.WithLabelValues(dir, string(c.Task.Status)).Inc()
			m.transfersActive.Dec()
		}
	case transfer.ChangeRemoved:
		if !c.Task.IsTerminal() {
			m.transfersActive.Dec()
		}
	}
}

// ObserveStore subscribes m to store and returns the unsubscribe function.
func (m *Metrics) ObserveStore(store *transfer.Store) func() {
	return store.Subscribe(m)
}

// RecordRequest records one file-service request.
func (m *Metrics) RecordRequest(route string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordBytes adds n content bytes in the given direction.
func (m *Metrics) RecordBytes(direction string, n int64) {
	if n > 0 {
		m.bytesTotal.WithLabelValues(direction).Add(float64(n))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics. Requests
// are labelled by the ServeMux pattern that matched them, "unmatched" if none.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(route, rw.statusCode, time.Since(start))
	})
}
