package handlers

import (
	"context"
	"net/http"

	"github.com/upb/catalog-rag/internal/observability"
	"github.com/upb/catalog-rag/models"
	"github.com/upb/catalog-rag/services/pipeline"
	"github.com/upb/catalog-rag/services/retrieval"
	"github.com/upb/catalog-rag/utils"
	"go.uber.org/zap"
)

// SearchRequest is the body of the direct search endpoints
type SearchRequest struct {
	Query string `json:"query" validate:"notblank"`
	TopK  int    `json:"top_k" validate:"gte=0,lte=50"`
}

// SearchResponse lists ranked fragments
type SearchResponse struct {
	Query   string       `json:"query"`
	Results []SourceView `json:"results"`
}

// SearchHandler exposes the retriever without generation
type SearchHandler struct {
	searcher      pipeline.Searcher
	linker        Linker
	defaultTenant string
	logger        *zap.Logger
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(searcher pipeline.Searcher, linker Linker, defaultTenant string, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searcher:      searcher,
		linker:        linker,
		defaultTenant: defaultTenant,
		logger:        logger,
	}
}

type searchFunc func(ctx context.Context, query, tenantID string, topK int) ([]models.ScoredFragment, error)

// HandleSearchText handles POST /api/rag/search/text
func (h *SearchHandler) HandleSearchText(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.searcher.SearchText, retrieval.DefaultTextTopK)
}

// HandleSearchImages handles POST /api/rag/search/images
func (h *SearchHandler) HandleSearchImages(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.searcher.SearchImages, retrieval.DefaultImageTopK)
}

func (h *SearchHandler) search(w http.ResponseWriter, r *http.Request, search searchFunc, defaultTopK int) {
	logger := observability.WithRequestFields(r.Context(), h.logger)

	var req SearchRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}
	if req.TopK == 0 {
		req.TopK = defaultTopK
	}

	results, err := search(r.Context(), req.Query, tenantFromRequest(r, h.defaultTenant), req.TopK)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, SearchResponse{Query: req.Query, Results: h.linker.Views(r, results)}); err != nil {
		logger.Error("failed to write search response", zap.Error(err))
	}
}
