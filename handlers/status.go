package handlers

import (
	"net/http"

	"github.com/upb/catalog-rag/utils"
)

// StatusResponse describes the running service
type StatusResponse struct {
	Status      string            `json:"status"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Generation  string            `json:"generation"`
	Endpoints   map[string]string `json:"endpoints"`
}

// StatusHandler returns application status information at GET /
func StatusHandler(environment, generation string) http.HandlerFunc {
	response := StatusResponse{
		Status:      "running",
		Service:     "catalog-rag",
		Environment: environment,
		Generation:  generation,
		Endpoints: map[string]string{
			"query":         "POST /api/rag/query",
			"search_text":   "POST /api/rag/search/text",
			"search_images": "POST /api/rag/search/images",
			"documents":     "GET /api/documents/list",
			"serve_doc":     "GET /api/documents/serve/{filename}",
			"images":        "GET /api/images/{path}",
			"tenant_stats":  "GET /api/tenants/stats",
			"tenant_delete": "DELETE /api/tenants/documents?source={filename}",
			"metrics":       "GET /metrics",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, response)
	}
}
