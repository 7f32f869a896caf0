package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/upb/catalog-rag/middleware"
	"github.com/upb/catalog-rag/models"
	"github.com/upb/catalog-rag/services/pipeline"
)

type mockAnswerer struct {
	mock.Mock
}

func (m *mockAnswerer) Run(ctx context.Context, query, tenantID string) (*pipeline.Result, error) {
	args := m.Called(ctx, query, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.Result), args.Error(1)
}

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchText(ctx context.Context, query, tenantID string, topK int) ([]models.ScoredFragment, error) {
	args := m.Called(ctx, query, tenantID, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ScoredFragment), args.Error(1)
}

func (m *mockSearcher) SearchImages(ctx context.Context, query, tenantID string, topK int) ([]models.ScoredFragment, error) {
	args := m.Called(ctx, query, tenantID, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ScoredFragment), args.Error(1)
}

type mockTenantStore struct {
	mock.Mock
}

func (m *mockTenantStore) Stats(ctx context.Context, tenantID string) (*models.TenantStats, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TenantStats), args.Error(1)
}

func (m *mockTenantStore) Delete(ctx context.Context, tenantID string, sourceDocuments ...string) (int, error) {
	args := m.Called(ctx, tenantID, sourceDocuments)
	return args.Int(0), args.Error(1)
}

func textSource(doc string, page int, score float64) models.ScoredFragment {
	f := models.NewTextFragment("acme", doc, page, "Oak chair, 45 cm wide.", []float64{0.1, 0.2})
	return models.ScoredFragment{Fragment: *f, Score: score}
}

func imageSource(doc string, page int, imagePath string, score float64) models.ScoredFragment {
	f := models.NewImageFragment("acme", doc, page, imagePath, "", []float64{0.3, 0.4})
	return models.ScoredFragment{Fragment: *f, Score: score}
}

func TestLinker(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "rag.local:8080"

	t.Run("derives base from request", func(t *testing.T) {
		l := NewLinker("", "extracted_images")
		views := l.Views(req, []models.ScoredFragment{textSource("Catalog 2025.pdf", 3, 0.9)})

		assert.Equal(t, "http://rag.local:8080/api/documents/serve/Catalog%202025.pdf#page=3", views[0].PDFURL)
		assert.Empty(t, views[0].URL)
		assert.Nil(t, views[0].Embedding)
	})

	t.Run("configured base wins", func(t *testing.T) {
		l := NewLinker("https://files.example.com/", "extracted_images")
		assert.Equal(t, "https://files.example.com/api/documents/serve/c.pdf", l.DocumentURL(req, "c.pdf", 0))
	})

	t.Run("forwarded proto", func(t *testing.T) {
		proxied := httptest.NewRequest(http.MethodGet, "/", nil)
		proxied.Host = "rag.example.com"
		proxied.Header.Set("X-Forwarded-Proto", "https")

		l := NewLinker("", "extracted_images")
		assert.Equal(t, "https://rag.example.com/api/documents/serve/c.pdf", l.DocumentURL(proxied, "c.pdf", 0))
	})

	t.Run("image urls", func(t *testing.T) {
		l := NewLinker("https://cdn.example.com", "/srv/rag/extracted_images")

		tests := []struct {
			name      string
			imagePath string
			want      string
		}{
			{
				name:      "windows separators after marker",
				imagePath: `extracted_images\acme\page_2_img_1.jpg`,
				want:      "https://cdn.example.com/api/images/acme/page_2_img_1.jpg",
			},
			{
				name:      "absolute path keeps the part after the marker",
				imagePath: "/data/extracted_images/acme/p 4.png",
				want:      "https://cdn.example.com/api/images/acme/p%204.png",
			},
			{
				name:      "no marker uses the file name",
				imagePath: "/tmp/other/chair.png",
				want:      "https://cdn.example.com/api/images/chair.png",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				views := l.Views(req, []models.ScoredFragment{imageSource("c.pdf", 2, tt.imagePath, 0.5)})
				assert.Equal(t, tt.want, views[0].URL)
				assert.Equal(t, "https://cdn.example.com/api/documents/serve/c.pdf#page=2", views[0].PDFURL)
			})
		}
	})

	t.Run("empty input gives empty slice", func(t *testing.T) {
		views := NewLinker("", "").Views(req, nil)
		assert.NotNil(t, views)
		assert.Empty(t, views)
	})
}

func TestTenantFromRequest(t *testing.T) {
	tests := []struct {
		name     string
		ctxValue string
		header   string
		fallback string
		want     string
	}{
		{name: "context wins", ctxValue: "ctx-tenant", header: "hdr-tenant", want: "ctx-tenant"},
		{name: "header without middleware", header: "hdr-tenant", want: "hdr-tenant"},
		{name: "null header uses fallback", header: "null", fallback: "tenant_123", want: "tenant_123"},
		{name: "nothing", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(middleware.TenantHeader, tt.header)
			}
			if tt.ctxValue != "" {
				req = req.WithContext(middleware.WithTenantID(req.Context(), tt.ctxValue))
			}
			assert.Equal(t, tt.want, tenantFromRequest(req, tt.fallback))
		})
	}
}
