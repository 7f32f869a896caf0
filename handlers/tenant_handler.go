package handlers

import (
	"net/http"

	"github.com/upb/catalog-rag/internal/observability"
	"github.com/upb/catalog-rag/services"
	"github.com/upb/catalog-rag/utils"
	"go.uber.org/zap"
)

// DocumentView is one ingested source document
type DocumentView struct {
	Name   string `json:"name"`
	PDFURL string `json:"pdf_url"`
}

// DeleteResponse reports how many fragments were removed
type DeleteResponse struct {
	TenantID string   `json:"tenant_id"`
	Sources  []string `json:"sources,omitempty"`
	Deleted  int      `json:"deleted"`
}

// TenantHandler serves per-tenant maintenance endpoints
type TenantHandler struct {
	store         TenantStore
	linker        Linker
	defaultTenant string
	logger        *zap.Logger
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(store TenantStore, linker Linker, defaultTenant string, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{
		store:         store,
		linker:        linker,
		defaultTenant: defaultTenant,
		logger:        logger,
	}
}

// HandleStats handles GET /api/tenants/stats
func (h *TenantHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	logger := observability.WithRequestFields(r.Context(), h.logger)

	tenantID := tenantFromRequest(r, h.defaultTenant)
	if tenantID == "" {
		HandleServiceError(w, services.ErrMissingTenant, logger)
		return
	}

	stats, err := h.store.Stats(r.Context(), tenantID)
	if err != nil {
		HandleServiceError(w, services.WrapRetrievalUnavailable("failed to load tenant stats", err), logger)
		return
	}

	if err := utils.WriteOK(w, stats); err != nil {
		logger.Error("failed to write stats response", zap.Error(err))
	}
}

// HandleListDocuments handles GET /api/documents/list
func (h *TenantHandler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	logger := observability.WithRequestFields(r.Context(), h.logger)

	tenantID := tenantFromRequest(r, h.defaultTenant)
	if tenantID == "" {
		HandleServiceError(w, services.ErrMissingTenant, logger)
		return
	}

	stats, err := h.store.Stats(r.Context(), tenantID)
	if err != nil {
		HandleServiceError(w, services.WrapRetrievalUnavailable("failed to list documents", err), logger)
		return
	}

	docs := make([]DocumentView, 0, len(stats.SourceDocuments))
	for _, name := range stats.SourceDocuments {
		docs = append(docs, DocumentView{Name: name, PDFURL: h.linker.DocumentURL(r, name, 0)})
	}

	if err := utils.WriteOK(w, docs); err != nil {
		logger.Error("failed to write documents response", zap.Error(err))
	}
}

// HandleDeleteDocuments handles DELETE /api/tenants/documents.
// Each ?source= names a document to drop; none wipes the tenant.
func (h *TenantHandler) HandleDeleteDocuments(w http.ResponseWriter, r *http.Request) {
	logger := observability.WithRequestFields(r.Context(), h.logger)

	tenantID := tenantFromRequest(r, h.defaultTenant)
	if tenantID == "" {
		HandleServiceError(w, services.ErrMissingTenant, logger)
		return
	}

	sources := r.URL.Query()["source"]
	deleted, err := h.store.Delete(r.Context(), tenantID, sources...)
	if err != nil {
		HandleServiceError(w, services.WrapRetrievalUnavailable("failed to delete fragments", err), logger)
		return
	}

	logger.Info("deleted tenant fragments",
		zap.String("tenant_id", tenantID),
		zap.Strings("sources", sources),
		zap.Int("deleted", deleted))

	if err := utils.WriteOK(w, DeleteResponse{TenantID: tenantID, Sources: sources, Deleted: deleted}); err != nil {
		logger.Error("failed to write delete response", zap.Error(err))
	}
}
