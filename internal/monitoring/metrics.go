// Package monitoring exposes Prometheus metrics for analyses and insight
// generation, plus a background sweeper for the insight cache.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
)

// Metrics bundles the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	AnalysisRuns       *prometheus.CounterVec
	AnalysisDuration   prometheus.Histogram
	SuppliersEvaluated prometheus.Counter

	InsightRequests *prometheus.CounterVec
	InsightTokens   *prometheus.CounterVec
	InsightCostUSD  prometheus.Counter
	InsightCache    *prometheus.CounterVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewMetrics registers all collectors against reg, defaulting to the global
// registry when nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		gatherer: gatherer,
		AnalysisRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coverage_analysis_runs_total",
			Help: "Coverage analyses computed, labeled by result.",
		}, []string{"result"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coverage_analysis_duration_seconds",
			Help:    "Wall time of coverage computation and persistence.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SuppliersEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coverage_supplier_office_pairs_total",
			Help: "Supplier and office pairs evaluated for radius membership.",
		}),
		InsightRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coverage_insight_requests_total",
			Help: "Model calls for insights, labeled by kind and result.",
		}, []string{"kind", "result"}),
		InsightTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coverage_insight_tokens_total",
			Help: "Tokens consumed by insight generation.",
		}, []string{"kind", "direction"}),
		InsightCostUSD: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coverage_insight_cost_usd_total",
			Help: "Estimated spend on insight generation in USD.",
		}),
		InsightCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coverage_insight_cache_lookups_total",
			Help: "Insight cache lookups, labeled by kind and outcome.",
		}, []string{"kind", "outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coverage_http_requests_total",
			Help: "HTTP requests, labeled by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coverage_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	for _, c := range []prometheus.Collector{
		m.AnalysisRuns, m.AnalysisDuration, m.SuppliersEvaluated,
		m.InsightRequests, m.InsightTokens, m.InsightCostUSD, m.InsightCache,
		m.HTTPRequests, m.HTTPDurations,
	} {
		if err := reg.Register(c); err != nil {
			return nil, eris.Wrap(err, "monitoring: register collector")
		}
	}
	return m, nil
}

// ObserveAnalysis records one coverage computation.
func (m *Metrics) ObserveAnalysis(offices, suppliers int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.AnalysisRuns.WithLabelValues(result(err)).Inc()
	if err != nil {
		return
	}
	m.AnalysisDuration.Observe(elapsed.Seconds())
	m.SuppliersEvaluated.Add(float64(offices) * float64(suppliers))
}

// ObserveInsight records one model call.
func (m *Metrics) ObserveInsight(kind string, inputTokens, outputTokens int64, costUSD float64, err error) {
	if m == nil {
		return
	}
	m.InsightRequests.WithLabelValues(kind, result(err)).Inc()
	if err != nil {
		return
	}
	m.InsightTokens.WithLabelValues(kind, "input").Add(float64(inputTokens))
	m.InsightTokens.WithLabelValues(kind, "output").Add(float64(outputTokens))
	m.InsightCostUSD.Add(costUSD)
}

// ObserveCache records an insight cache lookup.
func (m *Metrics) ObserveCache(kind string, hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.InsightCache.WithLabelValues(kind, outcome).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPDurations.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
