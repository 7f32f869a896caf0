package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Modality identifies the embedding space a fragment belongs to
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// IsValid reports whether m is a known modality
func (m Modality) IsValid() bool {
	return m == ModalityText || m == ModalityImage
}

// ParseModality converts a string into a Modality
func ParseModality(s string) (Modality, error) {
	m := Modality(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("unknown modality %q", s)
	}
	return m, nil
}

// Fragment is the atomic retrievable unit: a text chunk or an image descriptor
// with its embedding and provenance. Every fragment belongs to exactly one tenant.
type Fragment struct {
	ID             uuid.UUID `json:"id" db:"id"`
	TenantID       string    `json:"tenant_id" db:"tenant_id"`
	Modality       Modality  `json:"type" db:"modality"`
	Content        string    `json:"content" db:"content"`
	Embedding      []float64 `json:"embedding,omitempty" db:"embedding"`
	SourceDocument string    `json:"source_document" db:"source_document"`
	PageNumber     int       `json:"page_number" db:"page_number"`
	ImagePath      string    `json:"image_path,omitempty" db:"image_path"`
	CreatedAt      time.Time `json:"created_at,omitempty" db:"created_at"`
}

// TableName returns the table name for the Fragment model
func (Fragment) TableName() string {
	return "fragments"
}

// NewTextFragment creates a text fragment for a chunk of a source document
func NewTextFragment(tenantID, sourceDocument string, pageNumber int, content string, embedding []float64) *Fragment {
	return &Fragment{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Modality:       ModalityText,
		Content:        content,
		Embedding:      embedding,
		SourceDocument: sourceDocument,
		PageNumber:     pageNumber,
		CreatedAt:      time.Now(),
	}
}

// NewImageFragment creates an image fragment. An empty description falls back
// to "Image from <file> page <n>".
func NewImageFragment(tenantID, sourceDocument string, pageNumber int, imagePath, description string, embedding []float64) *Fragment {
	if description == "" {
		description = DefaultImageDescription(sourceDocument, pageNumber)
	}
	return &Fragment{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Modality:       ModalityImage,
		Content:        description,
		Embedding:      embedding,
		SourceDocument: sourceDocument,
		PageNumber:     pageNumber,
		ImagePath:      imagePath,
		CreatedAt:      time.Now(),
	}
}

// DefaultImageDescription is the content stored for images ingested without a caption
func DefaultImageDescription(sourceDocument string, pageNumber int) string {
	return fmt.Sprintf("Image from %s page %d", sourceDocument, pageNumber)
}

// HasEmbedding reports whether the fragment can be scored
func (f *Fragment) HasEmbedding() bool {
	return len(f.Embedding) > 0
}

// Validate checks the fields every stored fragment must carry
func (f *Fragment) Validate() error {
	if f.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if !f.Modality.IsValid() {
		return fmt.Errorf("invalid modality %q", f.Modality)
	}
	if f.SourceDocument == "" {
		return fmt.Errorf("source_document is required")
	}
	if f.PageNumber < 0 {
		return fmt.Errorf("page_number must not be negative")
	}
	return nil
}

// ScoredFragment is a fragment with the score assigned during one ranking pass.
// Scores are not comparable across calls.
type ScoredFragment struct {
	Fragment
	Score float64 `json:"score"`
}

// Fragments strips scores from a ranked result
func Fragments(ranked []ScoredFragment) []Fragment {
	out := make([]Fragment, len(ranked))
	for i := range ranked {
		out[i] = ranked[i].Fragment
	}
	return out
}

// TenantStats summarises what is stored for a tenant
type TenantStats struct {
	TenantID        string   `json:"tenant_id"`
	Total           int      `json:"total"`
	TextCount       int      `json:"text_count"`
	ImageCount      int      `json:"image_count"`
	Pages           []int    `json:"pages"`
	SourceDocuments []string `json:"source_documents"`
}
