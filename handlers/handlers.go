package handlers

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/upb/catalog-rag/middleware"
	"github.com/upb/catalog-rag/models"
	"github.com/upb/catalog-rag/services/pipeline"
)

// Answerer runs the full question answering pipeline
type Answerer interface {
	Run(ctx context.Context, query, tenantID string) (*pipeline.Result, error)
}

// TenantStore is the maintenance surface of the fragment store
type TenantStore interface {
	Stats(ctx context.Context, tenantID string) (*models.TenantStats, error)
	Delete(ctx context.Context, tenantID string, sourceDocuments ...string) (int, error)
}

// SourceView is a fragment as returned to clients, with links to the
// page it came from and, for images, the image itself.
type SourceView struct {
	models.ScoredFragment
	PDFURL string `json:"pdf_url,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Linker builds public URLs for sources
type Linker struct {
	// BaseURL is the public origin; empty derives it from the request
	BaseURL string
	// ImagesMarker is the path segment stored image paths are relative to
	ImagesMarker string
}

// NewLinker creates a Linker for the configured base URL and images directory
func NewLinker(baseURL, imagesDir string) Linker {
	marker := path.Base(filepath.ToSlash(imagesDir))
	if marker == "." || marker == "/" || marker == "" {
		marker = "extracted_images"
	}
	return Linker{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ImagesMarker: marker + "/",
	}
}

// Views converts ranked fragments into client views. Embeddings are dropped.
func (l Linker) Views(r *http.Request, ranked []models.ScoredFragment) []SourceView {
	base := l.base(r)
	views := make([]SourceView, 0, len(ranked))
	for _, sf := range ranked {
		sf.Embedding = nil
		view := SourceView{ScoredFragment: sf}
		view.PDFURL = l.documentURL(base, sf.SourceDocument, sf.PageNumber)
		if sf.Modality == models.ModalityImage {
			view.URL = l.imageURL(base, sf.ImagePath)
		}
		views = append(views, view)
	}
	return views
}

// DocumentURL links to a served document, optionally at a page
func (l Linker) DocumentURL(r *http.Request, doc string, page int) string {
	return l.documentURL(l.base(r), doc, page)
}

func (l Linker) documentURL(base, doc string, page int) string {
	if doc == "" {
		return ""
	}
	u := base + "/api/documents/serve/" + escapePath(doc)
	if page > 0 {
		u += "#page=" + strconv.Itoa(page)
	}
	return u
}

// imageURL keeps the part of the stored path after the images directory,
// or only the file name when the directory is not in the path.
func (l Linker) imageURL(base, imagePath string) string {
	raw := strings.ReplaceAll(imagePath, "\\", "/")
	if raw == "" {
		return ""
	}

	rel := path.Base(raw)
	if idx := strings.LastIndex(raw, l.ImagesMarker); idx >= 0 {
		rel = raw[idx+len(l.ImagesMarker):]
	}
	return base + "/api/images/" + escapePath(rel)
}

func (l Linker) base(r *http.Request) string {
	if l.BaseURL != "" || r == nil {
		return l.BaseURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// tenantFromRequest prefers the tenant set by middleware, then the raw header,
// then the configured fallback.
func tenantFromRequest(r *http.Request, fallback string) string {
	if tenantID := middleware.GetTenantIDFromContext(r.Context()); tenantID != "" {
		return tenantID
	}
	if tenantID := middleware.ParseTenantHeader(r.Header.Get(middleware.TenantHeader)); tenantID != "" {
		return tenantID
	}
	return fallback
}
