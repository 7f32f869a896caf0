package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/catalog-rag/models"
)

func fragment(doc string, page int) models.ScoredFragment {
	return models.ScoredFragment{Fragment: models.Fragment{
		Modality:       models.ModalityText,
		SourceDocument: doc,
		PageNumber:     page,
		Content:        doc,
	}}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   Set
	}{
		{
			name:   "single",
			answer: "The table is oak [CatalogA, Page 3].",
			want:   Set{{Source: "CatalogA", Page: "3"}: {}},
		},
		{
			name:   "case insensitive and spacing",
			answer: "See [ catalog b.pdf ,page12] and [CatalogA,   PAGE 3]",
			want: Set{
				{Source: "catalog b.pdf", Page: "12"}: {},
				{Source: "CatalogA", Page: "3"}:       {},
			},
		},
		{
			name:   "duplicates collapse",
			answer: "[A, Page 1] ... [A, Page 1]",
			want:   Set{{Source: "A", Page: "1"}: {}},
		},
		{
			name:   "context label format is not a citation",
			answer: "[Source: A, Page: 1]",
			want:   Set{},
		},
		{
			name:   "no citations",
			answer: "This information is not available in the uploaded catalogues.",
			want:   Set{},
		},
		{
			name:   "non numeric page",
			answer: "[A, Page three]",
			want:   Set{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.answer))
		})
	}
}

func TestFilter(t *testing.T) {
	retrieved := []models.ScoredFragment{
		fragment("CatalogA", 1),
		fragment("CatalogA", 3),
		fragment("CatalogB", 3),
		fragment("CatalogB", 7),
	}

	t.Run("keeps exactly the cited fragment", func(t *testing.T) {
		got := Filter("Oak frame [CatalogA, Page 3].", retrieved)
		require.Len(t, got, 1)
		assert.Equal(t, "CatalogA", got[0].SourceDocument)
		assert.Equal(t, 3, got[0].PageNumber)
	})

	t.Run("preserves rank order", func(t *testing.T) {
		got := Filter("[CatalogB, Page 7] and [CatalogA, Page 1]", retrieved)
		require.Len(t, got, 2)
		assert.Equal(t, retrieved[0], got[0])
		assert.Equal(t, retrieved[3], got[1])
	})

	t.Run("citing everything returns everything", func(t *testing.T) {
		got := Filter("[CatalogA, Page 1][CatalogA, Page 3][CatalogB, Page 3][CatalogB, Page 7]", retrieved)
		assert.Equal(t, retrieved, got)
	})

	t.Run("no citations falls back to all", func(t *testing.T) {
		assert.Equal(t, retrieved, Filter("It is made of oak.", retrieved))
	})

	t.Run("unmatched citations fall back to all", func(t *testing.T) {
		assert.Equal(t, retrieved, Filter("[CatalogZ, Page 9]", retrieved))
	})

	t.Run("trims stored source names", func(t *testing.T) {
		padded := []models.ScoredFragment{fragment("  CatalogA ", 3)}
		assert.Len(t, Filter("[CatalogA, Page 3]", padded), 1)
	})
}
