package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/catalog-rag/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "json info", level: "info", format: "json"},
		{name: "console debug", level: "debug", format: "console"},
		{name: "upper case level", level: "WARN", format: "json"},
		{name: "empty defaults to info", level: "", format: ""},
		{name: "invalid level", level: "loud", format: "json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, logger)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			_ = logger.Sync()
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger, err := NewLogger("warn", "json")
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestWithRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := middleware.WithRequestID(context.Background(), "req-42")
	ctx = middleware.WithTenantID(ctx, "acme")
	WithRequestFields(ctx, base).Info("handled")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "acme", fields["tenant_id"])

	assert.Same(t, base, WithRequestFields(context.Background(), base))
}

func TestMetrics_ObservePipelineRun(t *testing.T) {
	m := NewMetrics("catalog_rag")

	m.ObservePipelineRun("generated", 120*time.Millisecond, 3, 1)
	m.ObservePipelineRun("generated", 80*time.Millisecond, 2, 0)
	m.ObservePipelineRun("no_evidence", 10*time.Millisecond, 0, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("generated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("no_evidence")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObservePipelineRun("generated", time.Second, 1, 1) })
}

func TestMetrics_ObservePipelineFailure(t *testing.T) {
	m := NewMetrics("catalog_rag")

	m.ObservePipelineFailure("retrieval_unavailable", 40*time.Millisecond)
	m.ObservePipelineFailure("retrieval_unavailable", 20*time.Millisecond)
	m.ObservePipelineFailure("generation_failed", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("retrieval_unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("generation_failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.pipelineTime))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObservePipelineFailure("internal", time.Second) })
}

func TestMetrics_RegisterCache(t *testing.T) {
	m := NewMetrics("catalog_rag")

	size, hits, misses := 0, uint64(0), uint64(0)
	require.NoError(t, m.RegisterCache("query_embedding", func() (int, uint64, uint64) {
		return size, hits, misses
	}))
	size, hits, misses = 3, 7, 2

	expected := `
# HELP catalog_rag_cache_entries Entries currently held by a cache.
# TYPE catalog_rag_cache_entries gauge
catalog_rag_cache_entries{cache="query_embedding"} 3
# HELP catalog_rag_cache_hits_total Cache lookups answered from the cache.
# TYPE catalog_rag_cache_hits_total counter
catalog_rag_cache_hits_total{cache="query_embedding"} 7
# HELP catalog_rag_cache_misses_total Cache lookups that missed or found an expired entry.
# TYPE catalog_rag_cache_misses_total counter
catalog_rag_cache_misses_total{cache="query_embedding"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"catalog_rag_cache_entries", "catalog_rag_cache_hits_total", "catalog_rag_cache_misses_total"))

	assert.Error(t, m.RegisterCache("query_embedding", func() (int, uint64, uint64) { return 0, 0, 0 }))
}

func TestMetrics_Middleware(t *testing.T) {
	m := NewMetrics("catalog_rag")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/images/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/healthz", "/healthz", "/api/images/a.png"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/healthz", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/images/*", "GET", "404")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), "catalog_rag_http_requests_total"))
}
