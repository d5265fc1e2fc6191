package monitoring

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	return m, reg
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestObserveAnalysis(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.ObserveAnalysis(3, 100, 20*time.Millisecond, nil)
	m.ObserveAnalysis(3, 100, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisRuns.WithLabelValues("error")))
	assert.Equal(t, 300.0, testutil.ToFloat64(m.SuppliersEvaluated))

	count, err := testutil.GatherAndCount(reg, "coverage_analysis_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestObserveInsight(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.ObserveInsight("recommendation", 1200, 300, 0.0081, nil)
	m.ObserveInsight("swot", 0, 0, 0, errors.New("rate limited"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.InsightRequests.WithLabelValues("recommendation", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InsightRequests.WithLabelValues("swot", "error")))
	assert.Equal(t, 1200.0, testutil.ToFloat64(m.InsightTokens.WithLabelValues("recommendation", "input")))
	assert.Equal(t, 300.0, testutil.ToFloat64(m.InsightTokens.WithLabelValues("recommendation", "output")))
	assert.InDelta(t, 0.0081, testutil.ToFloat64(m.InsightCostUSD), 1e-9)
}

func TestObserveCache(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.ObserveCache("swot", true)
	m.ObserveCache("swot", false)
	m.ObserveCache("swot", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.InsightCache.WithLabelValues("swot", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InsightCache.WithLabelValues("swot", "miss")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAnalysis(1, 1, time.Second, nil)
		m.ObserveInsight("swot", 1, 1, 1, nil)
		m.ObserveCache("swot", true)
	})
	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NotNil(t, m.Middleware(h))
	assert.NotNil(t, m.Handler())
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/offices/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/offices/abc", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/v1/offices/{id}", "204")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.ObserveCache("recommendation", true)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "coverage_insight_cache_lookups_total")
}
