// Package embedding maps query and chunk text into the text and image vector spaces.
package embedding

import (
	"context"
	"fmt"

	"github.com/upb/catalog-rag/models"
)

// Provider produces query vectors for both modalities.
// EmbedImageQuery encodes text into the image (CLIP) space for cross-modal search.
type Provider interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
	EmbedImageQuery(ctx context.Context, text string) ([]float64, error)
}

// Embedder maps text into a single vector space
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Service routes each modality to its own embedder, optionally through a shared cache
type Service struct {
	text  Embedder
	image Embedder
	cache *Cache
}

// NewService creates an embedding provider. cache may be nil.
func NewService(text, image Embedder, cache *Cache) *Service {
	return &Service{
		text:  text,
		image: image,
		cache: cache,
	}
}

var _ Provider = (*Service)(nil)

// EmbedText embeds a query or chunk in the text space
func (s *Service) EmbedText(ctx context.Context, text string) ([]float64, error) {
	return s.embed(ctx, models.ModalityText, s.text, text)
}

// EmbedImageQuery embeds query text in the image space
func (s *Service) EmbedImageQuery(ctx context.Context, text string) ([]float64, error) {
	return s.embed(ctx, models.ModalityImage, s.image, text)
}

// TextEmbedder exposes the text-space embedder for bulk ingestion
func (s *Service) TextEmbedder() Embedder {
	return s.text
}

// CacheStats reports cache usage, or zero stats when caching is off
func (s *Service) CacheStats() CacheStats {
	if s.cache == nil {
		return CacheStats{}
	}
	return s.cache.Stats()
}

func (s *Service) embed(ctx context.Context, modality models.Modality, embedder Embedder, text string) ([]float64, error) {
	if embedder == nil {
		return nil, fmt.Errorf("no %s embedder configured", modality)
	}

	key := CacheKey{Modality: modality, Text: text}
	if s.cache != nil {
		if vec := s.cache.Get(key); vec != nil {
			return vec, nil
		}
	}

	vec, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %s query: %w", modality, err)
	}

	if s.cache != nil {
		s.cache.Set(key, vec)
	}
	return vec, nil
}
