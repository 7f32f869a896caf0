package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/upb/catalog-rag/internal/observability"
	"github.com/upb/catalog-rag/services"
	"github.com/upb/catalog-rag/utils"
	"go.uber.org/zap"
)

// QueryRequest is the body of POST /api/rag/query
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is the answer with linked evidence
type QueryResponse struct {
	Answer       string       `json:"answer"`
	TextSources  []SourceView `json:"text_sources"`
	ImageSources []SourceView `json:"image_sources"`
}

// QueryHandler serves the question answering endpoint
type QueryHandler struct {
	answerer      Answerer
	linker        Linker
	defaultTenant string
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewQueryHandler creates a new QueryHandler. metrics may be nil.
func NewQueryHandler(answerer Answerer, linker Linker, defaultTenant string, metrics *observability.Metrics, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		answerer:      answerer,
		linker:        linker,
		defaultTenant: defaultTenant,
		metrics:       metrics,
		logger:        logger,
	}
}

// HandleQuery handles POST /api/rag/query
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.WithRequestFields(ctx, h.logger)

	var req QueryRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		_ = utils.WriteBadRequest(w, "No query provided", nil)
		return
	}

	tenantID := tenantFromRequest(r, h.defaultTenant)
	logger.Info("processing query", zap.String("tenant_id", tenantID))

	start := time.Now()
	result, err := h.answerer.Run(ctx, req.Query, tenantID)
	if err != nil {
		h.metrics.ObservePipelineFailure(failureOutcome(err), time.Since(start))
		HandleServiceError(w, err, logger)
		return
	}
	h.metrics.ObservePipelineRun(string(result.Outcome), time.Since(start), len(result.TextSources), len(result.ImageSources))

	response := QueryResponse{
		Answer:       result.Answer,
		TextSources:  h.linker.Views(r, result.TextSources),
		ImageSources: h.linker.Views(r, result.ImageSources),
	}

	logger.Debug("sending answer",
		zap.String("run_id", result.RunID.String()),
		zap.Int("answer_length", len(response.Answer)),
		zap.Int("text_sources", len(response.TextSources)),
		zap.Int("image_sources", len(response.ImageSources)))

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		logger.Error("failed to write query response", zap.Error(err))
	}
}

// failureOutcome labels a failed run by its domain error type
func failureOutcome(err error) string {
	if errType := services.GetErrorType(err); errType != "" {
		return string(errType)
	}
	return string(services.ErrorTypeInternal)
}
