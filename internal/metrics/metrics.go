package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StatementDuration records how long each dispatched statement took.
	StatementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardvault",
			Name:      "statement_duration_seconds",
			Help:      "Duration of storage statements in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)

	// StatementErrors counts failed statements by storage error kind.
	StatementErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardvault",
			Name:      "statement_errors_total",
			Help:      "Total number of failed storage statements",
		},
		[]string{"backend", "op", "kind"},
	)

	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardvault",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardvault",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Register adds every collector to reg. Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{StatementDuration, StatementErrors, RequestCounter, RequestDuration} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveStatement records one statement outcome. kind is empty on success.
func ObserveStatement(backend, op string, started time.Time, kind string) {
	StatementDuration.WithLabelValues(backend, op).Observe(time.Since(started).Seconds())
	if kind != "" {
		StatementErrors.WithLabelValues(backend, op, kind).Inc()
	}
}

// Handler exposes the collectors gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
