package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/cardvault/internal/metrics"
)

func TestRegisterTwice(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))
	require.NoError(t, metrics.Register(reg))
}

func TestObserveStatement(t *testing.T) {
	t.Parallel()

	metrics.ObserveStatement("sqlite", "observe_ok", time.Now(), "")
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.StatementErrors.WithLabelValues("sqlite", "observe_ok", "constraint")), 0)

	metrics.ObserveStatement("sqlite", "observe_fail", time.Now(), "constraint")
	metrics.ObserveStatement("sqlite", "observe_fail", time.Now(), "constraint")
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.StatementErrors.WithLabelValues("sqlite", "observe_fail", "constraint")), 0)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/metrics-test/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics-test/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	got := testutil.ToFloat64(metrics.RequestCounter.WithLabelValues(http.MethodGet, "/metrics-test/{id}", "418"))
	assert.InDelta(t, 3, got, 0)
}

func TestHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "handler_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "handler_test_total 1"))
}
