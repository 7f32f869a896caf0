package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/catalog-rag/app"
	"github.com/upb/catalog-rag/config"
	"github.com/upb/catalog-rag/models"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (http.Handler, *app.Dependencies) {
	t.Helper()

	embeddings := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"m","data":[{"object":"embedding","index":0,"embedding":[1,0]}]}`))
	}))
	t.Cleanup(embeddings.Close)

	chat := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"It is 45 cm wide [catalog.pdf, Page 3]."},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(chat.Close)

	cfg := config.Defaults()
	cfg.Environment = "test"
	cfg.Storage.Driver = config.DriverMemory
	cfg.Embedding.Text.BaseURL = embeddings.URL + "/v1"
	cfg.Embedding.Text.APIKey = "test"
	cfg.Embedding.Image.BaseURL = embeddings.URL + "/v1"
	cfg.Generation.BaseURL = chat.URL
	cfg.Generation.APIKey = "test"
	cfg.Assets.ImagesDir = t.TempDir()
	cfg.Assets.DocumentsDir = t.TempDir()

	deps, err := app.NewDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	_, err = deps.Store.Insert(context.Background(), []models.Fragment{
		*models.NewTextFragment("acme", "catalog.pdf", 3, "Oak chair, 45 cm wide.", []float64{1, 0}),
	})
	require.NoError(t, err)

	return SetupRoutes(deps), deps
}

func TestSetupRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		tenant     string
		wantStatus int
		wantBody   string
	}{
		{name: "status index", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantBody: `"status":"running"`},
		{name: "liveness", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK},
		{name: "readiness", method: http.MethodGet, path: "/readyz", wantStatus: http.StatusOK, wantBody: `"provider:groq":"available"`},
		{
			name:       "query",
			method:     http.MethodPost,
			path:       "/api/rag/query",
			body:       `{"query":"How wide is the oak chair?"}`,
			tenant:     "acme",
			wantStatus: http.StatusOK,
			wantBody:   `"pdf_url":"http://example.com/api/documents/serve/catalog.pdf#page=3"`,
		},
		{
			name:       "query without text",
			method:     http.MethodPost,
			path:       "/api/rag/query",
			body:       `{}`,
			tenant:     "acme",
			wantStatus: http.StatusBadRequest,
			wantBody:   "No query provided",
		},
		{
			name:       "search text",
			method:     http.MethodPost,
			path:       "/api/rag/search/text",
			body:       `{"query":"oak chair","top_k":1}`,
			tenant:     "acme",
			wantStatus: http.StatusOK,
			wantBody:   `"source_document":"catalog.pdf"`,
		},
		{name: "stats", method: http.MethodGet, path: "/api/tenants/stats", tenant: "acme", wantStatus: http.StatusOK, wantBody: `"total":1`},
		{name: "stats without tenant", method: http.MethodGet, path: "/api/tenants/stats", wantStatus: http.StatusBadRequest},
		{name: "documents", method: http.MethodGet, path: "/api/documents/list", tenant: "acme", wantStatus: http.StatusOK, wantBody: `"name":"catalog.pdf"`},
		{name: "missing image", method: http.MethodGet, path: "/api/images/none.png", wantStatus: http.StatusNotFound},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nothing", wantStatus: http.StatusNotFound, wantBody: `{"error":"endpoint not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.tenant != "" {
				req.Header.Set("X-Tenant-ID", tt.tenant)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
			assert.NotEmpty(t, w.Header().Get("Content-Type"))
		})
	}
}

func TestSetupRoutes_TenantDelete(t *testing.T) {
	router, deps := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/tenants/documents?source=catalog.pdf", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data struct {
			Deleted int `json:"deleted"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 1, response.Data.Deleted)

	stats, err := deps.Store.Stats(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestSetupRoutes_CORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/rag/query", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Tenant-ID")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")), "x-tenant-id")
}

func TestSetupRoutes_Metrics(t *testing.T) {
	router, _ := newTestRouter(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `catalog_rag_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}
