// Package ingest turns source documents and fragment exports into stored, embedded fragments.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/upb/catalog-rag/models"
	"github.com/upb/catalog-rag/repositories"
	"github.com/upb/catalog-rag/services/embedding"
	"go.uber.org/zap"
)

const (
	defaultEmbedBatchSize  = 32
	defaultInsertBatchSize = 500
	maxJSONLLineSize       = 16 * 1024 * 1024
)

// ProgressFunc is called after each embedding batch with chunks done and total
type ProgressFunc func(done, total int)

// Report summarises one ingestion
type Report struct {
	TenantID   string   `json:"tenant_id"`
	Sources    []string `json:"sources"`
	Pages      int      `json:"pages"`
	TextChunks int      `json:"text_chunks"`
	Images     int      `json:"images"`
	Deleted    int      `json:"deleted"`
	Inserted   int      `json:"inserted"`
}

// Service ingests into a fragment store. Re-ingesting a source replaces it:
// the tenant's existing fragments for that source are deleted first.
type Service struct {
	store          repositories.FragmentRepository
	embedder       embedding.Embedder
	reader         PageReader
	chunkSize      int
	chunkOverlap   int
	embedBatchSize int
	logger         *zap.Logger
}

// NewService creates an ingestion service. reader may be nil to use PDFReader.
func NewService(store repositories.FragmentRepository, embedder embedding.Embedder, reader PageReader, logger *zap.Logger) *Service {
	if reader == nil {
		reader = PDFReader{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:          store,
		embedder:       embedder,
		reader:         reader,
		chunkSize:      DefaultChunkSize,
		chunkOverlap:   DefaultChunkOverlap,
		embedBatchSize: defaultEmbedBatchSize,
		logger:         logger,
	}
}

// IngestFile extracts, chunks and embeds a document's text and replaces the
// tenant's fragments for that document. The source name is the file's base name.
func (s *Service) IngestFile(ctx context.Context, path, tenantID string, progress ProgressFunc) (*Report, error) {
	if tenantID == "" {
		return nil, errors.New("tenant id is required")
	}
	if s.embedder == nil {
		return nil, errors.New("no text embedder configured")
	}

	source := filepath.Base(path)
	report := &Report{TenantID: tenantID, Sources: []string{source}}

	pages, err := s.reader.ReadPages(path)
	if err != nil {
		return nil, err
	}
	report.Pages = len(pages)

	type pending struct {
		page    int
		content string
	}
	var chunks []pending
	for _, p := range pages {
		for _, c := range ChunkText(p.Text, s.chunkSize, s.chunkOverlap) {
			chunks = append(chunks, pending{page: p.Number, content: c})
		}
	}
	report.TextChunks = len(chunks)

	fragments := make([]models.Fragment, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.embedBatchSize {
		end := start + s.embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.content)
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks of %s: %w", source, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
		}

		for i, c := range chunks[start:end] {
			fragments = append(fragments, *models.NewTextFragment(tenantID, source, c.page, c.content, vectors[i]))
		}
		if progress != nil {
			progress(end, len(chunks))
		}
	}

	if err := s.replace(ctx, tenantID, []string{source}, fragments, report); err != nil {
		return nil, err
	}

	s.logger.Info("document ingested",
		zap.String("tenant_id", tenantID),
		zap.String("source", source),
		zap.Int("pages", report.Pages),
		zap.Int("chunks", report.TextChunks),
		zap.Int("deleted", report.Deleted),
		zap.Int("inserted", report.Inserted))

	return report, nil
}

// ImportJSONL loads pre-embedded fragments, one JSON object per line, for a tenant.
// A line that names a different tenant is rejected. Sources present in the import
// replace the tenant's existing fragments for those sources.
func (s *Service) ImportJSONL(ctx context.Context, r io.Reader, tenantID string) (*Report, error) {
	if tenantID == "" {
		return nil, errors.New("tenant id is required")
	}

	report := &Report{TenantID: tenantID, Sources: []string{}}
	seen := make(map[string]struct{})
	var fragments []models.Fragment

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLineSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var f models.Fragment
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return nil, fmt.Errorf("line %d: invalid fragment: %w", line, err)
		}
		if f.TenantID != "" && f.TenantID != tenantID {
			return nil, fmt.Errorf("line %d: fragment belongs to tenant %q", line, f.TenantID)
		}
		f.TenantID = tenantID
		if f.Modality == models.ModalityImage && f.Content == "" {
			f.Content = models.DefaultImageDescription(f.SourceDocument, f.PageNumber)
		}
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		switch f.Modality {
		case models.ModalityText:
			report.TextChunks++
		case models.ModalityImage:
			report.Images++
		}
		if _, ok := seen[f.SourceDocument]; !ok {
			seen[f.SourceDocument] = struct{}{}
			report.Sources = append(report.Sources, f.SourceDocument)
		}
		fragments = append(fragments, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}

	if err := s.replace(ctx, tenantID, report.Sources, fragments, report); err != nil {
		return nil, err
	}

	s.logger.Info("fragments imported",
		zap.String("tenant_id", tenantID),
		zap.Int("sources", len(report.Sources)),
		zap.Int("text", report.TextChunks),
		zap.Int("images", report.Images),
		zap.Int("inserted", report.Inserted))

	return report, nil
}

func (s *Service) replace(ctx context.Context, tenantID string, sources []string, fragments []models.Fragment, report *Report) error {
	if len(sources) > 0 {
		deleted, err := s.store.Delete(ctx, tenantID, sources...)
		if err != nil {
			return fmt.Errorf("failed to clear existing fragments: %w", err)
		}
		report.Deleted = deleted
	}

	for start := 0; start < len(fragments); start += defaultInsertBatchSize {
		end := start + defaultInsertBatchSize
		if end > len(fragments) {
			end = len(fragments)
		}
		n, err := s.store.Insert(ctx, fragments[start:end])
		if err != nil {
			return fmt.Errorf("failed to insert fragments: %w", err)
		}
		report.Inserted += n
	}
	return nil
}
