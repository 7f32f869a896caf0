package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/catalog-rag/services"
	"github.com/upb/catalog-rag/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsValidationError(err):
		if err := utils.WriteBadRequest(w, err.Error(), details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case services.IsNotFoundError(err):
		if err := utils.WriteNotFound(w, err.Error()); err != nil {
			logger.Error("failed to write not found response", zap.Error(err))
		}

	case services.IsRetrievalUnavailableError(err):
		logger.Warn("retrieval unavailable", zap.Error(err))
		if err := utils.WriteServiceUnavailable(w, string(services.ErrorTypeRetrievalUnavailable), err.Error(), details); err != nil {
			logger.Error("failed to write service unavailable response", zap.Error(err))
		}

	case services.IsGenerationFailedError(err):
		// Upstream LLM failures surface as 502 Bad Gateway
		logger.Warn("generation failed", zap.Error(err))
		if err := utils.WriteBadGateway(w, err.Error(), details); err != nil {
			logger.Error("failed to write bad gateway response", zap.Error(err))
		}

	case services.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validationErr *utils.ValidationError
	if errors.As(err, &validationErr) {
		details := make(map[string]interface{}, len(validationErr.Fields))
		for k, v := range validationErr.Fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, validationErr.Message, details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
