package metrics

import (
	"context"
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

	"github.com/mind-engage/everify-tester/internal/everify"
)

func TestDispatchHookCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispatchMetrics(reg)
	ctx := context.Background()

	m.Hook(ctx, "ws", everify.Result{Action: everify.ActionQRCheck, Outcome: everify.OutcomeOK, Duration: 120 * time.Millisecond})
	m.Hook(ctx, "ws", everify.Result{Action: everify.ActionQRCheck, Outcome: everify.OutcomeOK, Duration: 80 * time.Millisecond})
	m.Hook(ctx, "ws", everify.Result{Action: everify.ActionQRCheck, Outcome: everify.OutcomeNoCredential})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExchangesTotal.WithLabelValues("qr-check", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExchangesTotal.WithLabelValues("qr-check", "no_credential")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ExchangeDuration))

	count, err := testutil.GatherAndCount(reg, "everify_tester_everify_exchange_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWorkspaceGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	n := 3
	RegisterWorkspaceGauge(reg, func() int { return n })

	expected := `
# HELP everify_tester_workspaces Number of in-memory tester workspaces.
# TYPE everify_tester_workspaces gauge
everify_tester_workspaces 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "everify_tester_workspaces"))
}

func TestHTTPMiddlewareUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/history", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {})

	for _, path := range []string{"/api/history", "/api/history", "/metrics"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/history", "418")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlightGauge))
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := NewRegistry()
	NewDispatchMetrics(reg).Hook(context.Background(), "ws", everify.Result{Action: everify.ActionAuthenticate, Outcome: everify.OutcomeOK})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `everify_tester_everify_exchanges_total{action="authenticate",outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
