// Package retrieval runs tenant-scoped similarity search over one modality at a time.
package retrieval

import (
	"context"
	"errors"
	"strings"

	"github.com/upb/catalog-rag/models"
	"github.com/upb/catalog-rag/repositories"
	"github.com/upb/catalog-rag/services"
	"github.com/upb/catalog-rag/services/embedding"
	"github.com/upb/catalog-rag/services/ranking"
	"go.uber.org/zap"
)

const (
	// DefaultTextTopK is used when a text search is called with topK <= 0
	DefaultTextTopK = 5

	// DefaultImageTopK is used when an image search is called with topK <= 0
	DefaultImageTopK = 4
)

// Retriever embeds a query, fetches the tenant's fragments of one modality and ranks them.
// Every search is a full scan of the tenant's fragments for that modality.
type Retriever struct {
	store       repositories.FragmentRepository
	embedder    embedding.Provider
	textRanker  ranking.Ranker
	imageRanker ranking.Ranker
	logger      *zap.Logger
}

// Option customises a Retriever
type Option func(*Retriever)

// WithTextRanker replaces the boosted brute-force text ranker
func WithTextRanker(r ranking.Ranker) Option {
	return func(rt *Retriever) { rt.textRanker = r }
}

// WithImageRanker replaces the brute-force image ranker
func WithImageRanker(r ranking.Ranker) Option {
	return func(rt *Retriever) { rt.imageRanker = r }
}

// NewRetriever creates a retriever over a fragment store and embedding provider
func NewRetriever(store repositories.FragmentRepository, embedder embedding.Provider, logger *zap.Logger, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, errors.New("retrieval: store must not be nil")
	}
	if embedder == nil {
		return nil, errors.New("retrieval: embedder must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Retriever{
		store:       store,
		embedder:    embedder,
		textRanker:  ranking.NewTextRanker(),
		imageRanker: ranking.NewImageRanker(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.textRanker.Modality() != models.ModalityText || r.imageRanker.Modality() != models.ModalityImage {
		return nil, errors.New("retrieval: ranker modality mismatch")
	}
	return r, nil
}

// SearchText returns the tenant's top text fragments, keyword-boosted
func (r *Retriever) SearchText(ctx context.Context, query, tenantID string, topK int) ([]models.ScoredFragment, error) {
	if topK <= 0 {
		topK = DefaultTextTopK
	}
	return r.search(ctx, query, tenantID, topK, r.textRanker, r.embedder.EmbedText)
}

// SearchImages returns the tenant's top image fragments, scored in the image space
func (r *Retriever) SearchImages(ctx context.Context, query, tenantID string, topK int) ([]models.ScoredFragment, error) {
	if topK <= 0 {
		topK = DefaultImageTopK
	}
	return r.search(ctx, query, tenantID, topK, r.imageRanker, r.embedder.EmbedImageQuery)
}

type embedFunc func(ctx context.Context, text string) ([]float64, error)

func (r *Retriever) search(ctx context.Context, query, tenantID string, topK int, ranker ranking.Ranker, embed embedFunc) ([]models.ScoredFragment, error) {
	if tenantID == "" {
		return nil, services.ErrMissingTenant
	}
	if strings.TrimSpace(query) == "" {
		return nil, services.ErrMissingQuery
	}

	modality := ranker.Modality()

	vec, err := embed(ctx, query)
	if err != nil {
		return nil, services.WrapRetrievalUnavailable("embedding provider unavailable", err)
	}

	candidates, err := r.store.Fetch(ctx, tenantID, modality)
	if err != nil {
		return nil, services.WrapRetrievalUnavailable("fragment store unavailable", err)
	}

	candidates = r.scope(candidates, tenantID, modality)
	results := ranker.Rank(ranking.Query{Text: query, Embedding: vec}, candidates, topK)

	r.logger.Debug("search completed",
		zap.String("tenant_id", tenantID),
		zap.String("modality", string(modality)),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)))

	return results, nil
}

// scope drops anything the store returned outside the requested tenant and modality
func (r *Retriever) scope(candidates []models.Fragment, tenantID string, modality models.Modality) []models.Fragment {
	kept := make([]models.Fragment, 0, len(candidates))
	dropped := 0
	for _, c := range candidates {
		if c.TenantID != tenantID || c.Modality != modality {
			dropped++
			continue
		}
		kept = append(kept, c)
	}
	if dropped > 0 {
		r.logger.Warn("store returned fragments outside the requested scope",
			zap.String("tenant_id", tenantID),
			zap.String("modality", string(modality)),
			zap.Int("dropped", dropped))
	}
	return kept
}
