package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/catalog-rag/models"
	"github.com/upb/catalog-rag/services/providers"
)

// Fixed answers for the terminal outcomes that never reach the generator
const (
	MissingTenantAnswer = "Error: Tenant ID is missing."
	MissingQueryAnswer  = "Error: Query is missing."
	NoEvidenceAnswer    = "This information is not available in the uploaded catalogues."
	ImageOnlyAnswer     = "I found some relevant images, but no text descriptions were available."
)

// Outcome records which terminal state a run ended in
type Outcome string

const (
	OutcomeInvalid    Outcome = "invalid"
	OutcomeNoEvidence Outcome = "no_evidence"
	OutcomeImageOnly  Outcome = "image_only"
	OutcomeGenerated  Outcome = "generated"
)

// Searcher is the retrieval surface the pipeline needs
type Searcher interface {
	SearchText(ctx context.Context, query, tenantID string, topK int) ([]models.ScoredFragment, error)
	SearchImages(ctx context.Context, query, tenantID string, topK int) ([]models.ScoredFragment, error)
}

// Generator maps a conversation to generated text in a single blocking call
type Generator interface {
	Generate(ctx context.Context, messages []providers.Message, temperature float64) (string, error)
}

// Config holds the per-run retrieval sizes and sampling temperature
type Config struct {
	TextTopK    int
	ImageTopK   int
	Temperature float64
}

// DefaultConfig returns the sizes used by the answer pipeline
func DefaultConfig() Config {
	return Config{
		TextTopK:    5,
		ImageTopK:   3,
		Temperature: 0.2,
	}
}

// Result is the answer plus the evidence shown with it.
// Both source lists are always non-nil so they serialise as [].
type Result struct {
	Answer       string                  `json:"answer"`
	TextSources  []models.ScoredFragment `json:"text_sources"`
	ImageSources []models.ScoredFragment `json:"image_sources"`

	Outcome Outcome   `json:"-"`
	RunID   uuid.UUID `json:"-"`
}

func newResult(runID uuid.UUID, outcome Outcome, answer string, text, images []models.ScoredFragment) *Result {
	if text == nil {
		text = []models.ScoredFragment{}
	}
	if images == nil {
		images = []models.ScoredFragment{}
	}
	return &Result{
		Answer:       answer,
		TextSources:  text,
		ImageSources: images,
		Outcome:      outcome,
		RunID:        runID,
	}
}

// runContext tracks one query through the pipeline
type runContext struct {
	RunID     uuid.UUID
	TenantID  string
	Query     string
	Visual    bool
	StartTime time.Time

	TextResults  []models.ScoredFragment
	ImageResults []models.ScoredFragment
}
