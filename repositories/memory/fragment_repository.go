// Package memory is an in-process fragment store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upb/catalog-rag/models"
	"github.com/upb/catalog-rag/repositories"
)

// FragmentRepository keeps fragments in insertion order
type FragmentRepository struct {
	mu        sync.RWMutex
	fragments []models.Fragment
}

// NewFragmentRepository creates an empty in-memory store
func NewFragmentRepository() *FragmentRepository {
	return &FragmentRepository{}
}

var _ repositories.FragmentRepository = (*FragmentRepository)(nil)

// Fetch returns copies of the tenant's fragments for one modality
func (r *FragmentRepository) Fetch(ctx context.Context, tenantID string, modality models.Modality) ([]models.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Fragment, 0)
	for _, f := range r.fragments {
		if f.TenantID == tenantID && f.Modality == modality {
			out = append(out, f)
		}
	}
	return out, nil
}

// Insert appends fragments, assigning ids and timestamps when unset
func (r *FragmentRepository) Insert(ctx context.Context, fragments []models.Fragment) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range fragments {
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		if f.CreatedAt.IsZero() {
			f.CreatedAt = time.Now()
		}
		if f.Embedding != nil {
			f.Embedding = append([]float64(nil), f.Embedding...)
		}
		r.fragments = append(r.fragments, f)
	}
	return len(fragments), nil
}

// Delete removes matching fragments and preserves the order of the rest
func (r *FragmentRepository) Delete(ctx context.Context, tenantID string, sourceDocuments ...string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	sources := make(map[string]struct{}, len(sourceDocuments))
	for _, s := range sourceDocuments {
		sources[s] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.fragments[:0]
	deleted := 0
	for _, f := range r.fragments {
		_, sourceMatch := sources[f.SourceDocument]
		if f.TenantID == tenantID && (len(sources) == 0 || sourceMatch) {
			deleted++
			continue
		}
		kept = append(kept, f)
	}
	r.fragments = kept
	return deleted, nil
}

// Stats counts the tenant's fragments by modality
func (r *FragmentRepository) Stats(ctx context.Context, tenantID string) (*models.TenantStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.TenantStats{TenantID: tenantID, Pages: []int{}, SourceDocuments: []string{}}
	pages := make(map[int]struct{})
	docs := make(map[string]struct{})

	for _, f := range r.fragments {
		if f.TenantID != tenantID {
			continue
		}
		stats.Total++
		switch f.Modality {
		case models.ModalityText:
			stats.TextCount++
		case models.ModalityImage:
			stats.ImageCount++
		}
		if _, ok := pages[f.PageNumber]; !ok {
			pages[f.PageNumber] = struct{}{}
			stats.Pages = append(stats.Pages, f.PageNumber)
		}
		if _, ok := docs[f.SourceDocument]; !ok {
			docs[f.SourceDocument] = struct{}{}
			stats.SourceDocuments = append(stats.SourceDocuments, f.SourceDocument)
		}
	}

	sort.Ints(stats.Pages)
	sort.Strings(stats.SourceDocuments)
	return stats, nil
}

// HealthCheck always succeeds
func (r *FragmentRepository) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (r *FragmentRepository) Close() error {
	return nil
}
