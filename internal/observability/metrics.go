package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects HTTP and pipeline metrics on a private registry
type Metrics struct {
	registry  *prometheus.Registry
	namespace string

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	pipelineRuns *prometheus.CounterVec
	pipelineTime *prometheus.HistogramVec
	sources      *prometheus.HistogramVec
}

// NewMetrics registers the collectors under the given namespace
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		namespace: namespace,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "RAG pipeline runs by outcome.",
		}, []string{"outcome"}),
		pipelineTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "RAG pipeline latency by outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
		sources: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_sources",
			Help:      "Sources returned per answer by modality.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 10},
		}, []string{"modality"}),
	}

	m.registry.MustRegister(m.httpRequests, m.httpLatency, m.pipelineRuns, m.pipelineTime, m.sources)
	return m
}

// ObservePipelineRun records one pipeline run
func (m *Metrics) ObservePipelineRun(outcome string, duration time.Duration, textSources, imageSources int) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(outcome).Inc()
	m.pipelineTime.WithLabelValues(outcome).Observe(duration.Seconds())
	m.sources.WithLabelValues("text").Observe(float64(textSources))
	m.sources.WithLabelValues("image").Observe(float64(imageSources))
}

// ObservePipelineFailure records a run that ended in an error, labelled with the error type
func (m *Metrics) ObservePipelineFailure(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(outcome).Inc()
	m.pipelineTime.WithLabelValues(outcome).Observe(duration.Seconds())
}

// CacheStatsFunc reports a cache's current size and its lifetime hits and misses
type CacheStatsFunc func() (size int, hits, misses uint64)

// RegisterCache exports size, hits and misses of a cache, read at scrape time
func (m *Metrics) RegisterCache(name string, stats CacheStatsFunc) error {
	labels := prometheus.Labels{"cache": name}
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Name:        "cache_entries",
			Help:        "Entries currently held by a cache.",
			ConstLabels: labels,
		}, func() float64 {
			size, _, _ := stats()
			return float64(size)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   m.namespace,
			Name:        "cache_hits_total",
			Help:        "Cache lookups answered from the cache.",
			ConstLabels: labels,
		}, func() float64 {
			_, hits, _ := stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   m.namespace,
			Name:        "cache_misses_total",
			Help:        "Cache lookups that missed or found an expired entry.",
			ConstLabels: labels,
		}, func() float64 {
			_, _, misses := stats()
			return float64(misses)
		}),
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return fmt.Errorf("register %s cache metrics: %w", name, err)
		}
	}
	return nil
}

// Middleware records count and latency per chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpLatency.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
