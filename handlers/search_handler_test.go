package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/catalog-rag/middleware"
	"github.com/upb/catalog-rag/models"
	"github.com/upb/catalog-rag/services"
	"github.com/upb/catalog-rag/utils"
	"go.uber.org/zap"
)

func newSearchRequest(path, body, tenant string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if tenant != "" {
		req.Header.Set(middleware.TenantHeader, tenant)
	}
	return req
}

func TestSearchHandler_Text(t *testing.T) {
	t.Run("default top_k", func(t *testing.T) {
		searcher := new(mockSearcher)
		searcher.On("SearchText", mock.Anything, "oak chair", "acme", 5).
			Return([]models.ScoredFragment{textSource("c.pdf", 1, 0.8), textSource("c.pdf", 2, 0.7)}, nil)

		h := NewSearchHandler(searcher, NewLinker("https://rag.example.com", ""), "", zap.NewNop())
		w := httptest.NewRecorder()
		h.HandleSearchText(w, newSearchRequest("/api/rag/search/text", `{"query":"oak chair"}`, "acme"))

		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Data SearchResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "oak chair", response.Data.Query)
		require.Len(t, response.Data.Results, 2)
		assert.Equal(t, 0.8, response.Data.Results[0].Score)
		assert.Equal(t, "https://rag.example.com/api/documents/serve/c.pdf#page=1", response.Data.Results[0].PDFURL)
		searcher.AssertExpectations(t)
	})

	t.Run("explicit top_k", func(t *testing.T) {
		searcher := new(mockSearcher)
		searcher.On("SearchText", mock.Anything, "oak chair", "acme", 2).Return([]models.ScoredFragment{}, nil)

		h := NewSearchHandler(searcher, NewLinker("", ""), "", zap.NewNop())
		w := httptest.NewRecorder()
		h.HandleSearchText(w, newSearchRequest("/api/rag/search/text", `{"query":"oak chair","top_k":2}`, "acme"))

		assert.Equal(t, http.StatusOK, w.Code)
		searcher.AssertExpectations(t)
	})

	t.Run("validation", func(t *testing.T) {
		searcher := new(mockSearcher)
		h := NewSearchHandler(searcher, NewLinker("", ""), "", zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleSearchText(w, newSearchRequest("/api/rag/search/text", `{"top_k":500}`, "acme"))

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "query must not be empty", response.Details["query"])
		assert.Equal(t, "top_k must be 50 or less", response.Details["top_k"])
		searcher.AssertNotCalled(t, "SearchText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("whitespace query is rejected", func(t *testing.T) {
		searcher := new(mockSearcher)
		h := NewSearchHandler(searcher, NewLinker("", ""), "", zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleSearchImages(w, newSearchRequest("/api/rag/search/images", `{"query":"   "}`, "acme"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "query must not be empty")
		searcher.AssertNotCalled(t, "SearchImages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing tenant", func(t *testing.T) {
		searcher := new(mockSearcher)
		searcher.On("SearchText", mock.Anything, "oak chair", "", 5).Return(nil, services.ErrMissingTenant)

		h := NewSearchHandler(searcher, NewLinker("", ""), "", zap.NewNop())
		w := httptest.NewRecorder()
		h.HandleSearchText(w, newSearchRequest("/api/rag/search/text", `{"query":"oak chair"}`, ""))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSearchHandler_Images(t *testing.T) {
	searcher := new(mockSearcher)
	searcher.On("SearchImages", mock.Anything, "photo of the sofa", "acme", 4).
		Return([]models.ScoredFragment{imageSource("c.pdf", 7, "extracted_images/acme/sofa.png", 0.33)}, nil)

	h := NewSearchHandler(searcher, NewLinker("https://rag.example.com", "extracted_images"), "", zap.NewNop())
	w := httptest.NewRecorder()
	h.HandleSearchImages(w, newSearchRequest("/api/rag/search/images", `{"query":"photo of the sofa"}`, "acme"))

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data SearchResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response.Data.Results, 1)
	assert.Equal(t, "https://rag.example.com/api/images/acme/sofa.png", response.Data.Results[0].URL)
	searcher.AssertExpectations(t)
}
