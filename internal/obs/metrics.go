// Package obs registers Prometheus metrics and wraps HTTP handlers with
// request instrumentation.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Domain metrics.
var (
	MatchesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "matches_created_total",
		Help: "Match requests accepted into PENDING.",
	})

	MatchTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_transitions_total",
			Help: "Match state transitions by resulting status.",
		},
		[]string{"status"},
	)

	TrustUpdateFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trust_update_failures_total",
		Help: "Trust score updates that failed after a completed match.",
	})

	NotificationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "Notifications persisted by the dispatcher.",
	})

	NotificationsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Live-stream deliveries dropped because a subscriber buffer was full.",
	})

	MailFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_mail_failures_total",
		Help: "Email deliveries that failed after the notification was persisted.",
	})

	StreamSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stream_subscribers",
		Help: "Currently attached notification stream connections.",
	})

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service considers itself ready.",
	})
)

// Init registers all metrics with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		MatchesCreated, MatchTransitions, TrustUpdateFailures,
		NotificationsCreated, NotificationsDropped, MailFailures, StreamSubscribers,
		ready,
	)
}

// SetReady flips the readiness gauge.
func SetReady(v bool) {
	if v {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument measures RPS, latency and in-flight count for next.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter records the response code for labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the underlying writer so SSE keeps working when the
// handler is wrapped.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
