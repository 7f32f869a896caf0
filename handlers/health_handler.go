package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/catalog-rag/repositories"
	"github.com/upb/catalog-rag/services/providers"
	"github.com/upb/catalog-rag/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProviderProber reports the reachability of each generation backend
type ProviderProber interface {
	Probe(ctx context.Context) []providers.ProviderStatus
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	store     repositories.HealthChecker
	providers ProviderProber
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. A nil store is reported as not configured;
// a nil prober skips the provider checks.
func NewHealthHandler(store repositories.HealthChecker, prober ProviderProber, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		providers: prober,
		logger:    logger,
	}
}

// HandleHealth handles GET /healthz
// Basic liveness check - always returns 200 if the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Readiness check - the fragment store must answer; provider reachability is reported
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	switch {
	case h.store == nil:
		checks["store"] = "not_configured"
		allHealthy = false
	default:
		if err := h.store.HealthCheck(ctx); err != nil {
			h.logger.Warn("fragment store health check failed", zap.Error(err))
			checks["store"] = "unhealthy"
			allHealthy = false
		} else {
			checks["store"] = "healthy"
		}
	}

	// Provider checks are informational; search does not need the LLM.
	if h.providers != nil {
		for _, st := range h.providers.Probe(ctx) {
			state := "available"
			if !st.Available {
				state = "unavailable"
				h.logger.Warn("llm provider unreachable", zap.String("provider", st.Name))
			}
			checks["provider:"+st.Name] = state
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
