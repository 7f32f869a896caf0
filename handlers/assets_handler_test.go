package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestAssetHandler(t *testing.T) {
	root := t.TempDir()
	imagesDir := filepath.Join(root, "extracted_images")
	docsDir := filepath.Join(root, "data")

	writeFile(t, filepath.Join(imagesDir, "acme", "chair.png"), "png-bytes")
	writeFile(t, filepath.Join(docsDir, "catalog.pdf"), "%PDF-current")
	writeFile(t, filepath.Join(docsDir, "original", "legacy.pdf"), "%PDF-original")
	writeFile(t, filepath.Join(root, "secret.txt"), "secret")

	h := NewAssetHandler(imagesDir, docsDir, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/api/images/*", h.HandleImage)
	r.Get("/api/documents/serve/*", h.HandleDocument)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "nested image", path: "/api/images/acme/chair.png", wantStatus: http.StatusOK, wantBody: "png-bytes"},
		{name: "document", path: "/api/documents/serve/catalog.pdf", wantStatus: http.StatusOK, wantBody: "%PDF-current"},
		{name: "original fallback", path: "/api/documents/serve/legacy.pdf", wantStatus: http.StatusOK, wantBody: "%PDF-original"},
		{name: "missing document", path: "/api/documents/serve/missing.pdf", wantStatus: http.StatusNotFound},
		{name: "directory is not a file", path: "/api/images/acme", wantStatus: http.StatusNotFound},
		{name: "traversal", path: "/api/images/../secret.txt", wantStatus: http.StatusBadRequest},
		{name: "nested traversal", path: "/api/documents/serve/original/../../secret.txt", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestCleanRelative(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "a.png", want: "a.png", wantOK: true},
		{in: "acme/a.png", want: filepath.Join("acme", "a.png"), wantOK: true},
		{in: `acme\a.png`, want: filepath.Join("acme", "a.png"), wantOK: true},
		{in: "acme/./a.png", want: filepath.Join("acme", "a.png"), wantOK: true},
		{in: "", wantOK: false},
		{in: "/etc/passwd", wantOK: false},
		{in: "../a.png", wantOK: false},
		{in: `..\a.png`, wantOK: false},
		{in: "acme/../../a.png", wantOK: false},
		{in: ".", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := cleanRelative(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
