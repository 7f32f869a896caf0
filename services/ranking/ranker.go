// Package ranking scores stored fragments against a query embedding and
// returns a stable, descending top-K.
package ranking

import (
	"sort"

	"github.com/upb/catalog-rag/models"
)

// Query is one ranking request: the raw text (for boosting) and its embedding
// in the modality's vector space.
type Query struct {
	Text      string
	Embedding []float64
}

// Ranker orders candidates of a single modality by relevance.
// BruteForce is the only backend; an index-backed ranker can satisfy the same contract.
type Ranker interface {
	Modality() models.Modality
	Rank(query Query, candidates []models.Fragment, k int) []models.ScoredFragment
}

// BruteForce scores every candidate and sorts. Candidates with no embedding,
// a mismatched dimension, or a different modality are skipped.
type BruteForce struct {
	modality models.Modality
	strategy ScoringStrategy
}

// NewBruteForce creates a full-scan ranker for one modality
func NewBruteForce(modality models.Modality, strategy ScoringStrategy) *BruteForce {
	if strategy.Similarity == nil {
		strategy.Similarity = Cosine
	}
	return &BruteForce{
		modality: modality,
		strategy: strategy,
	}
}

// NewTextRanker returns the boosted text ranker
func NewTextRanker() *BruteForce {
	return NewBruteForce(models.ModalityText, TextStrategy())
}

// NewImageRanker returns the unboosted image ranker
func NewImageRanker() *BruteForce {
	return NewBruteForce(models.ModalityImage, ImageStrategy())
}

// Modality returns the vector space this ranker operates in
func (r *BruteForce) Modality() models.Modality {
	return r.modality
}

// Rank returns at most k fragments in descending score order, ties in candidate order.
// k <= 0 returns every scorable candidate.
func (r *BruteForce) Rank(query Query, candidates []models.Fragment, k int) []models.ScoredFragment {
	var boost BoostFunc
	if r.strategy.Booster != nil {
		boost = r.strategy.Booster.ForQuery(query.Text)
	}

	scored := make([]models.ScoredFragment, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if c.Modality != r.modality || !c.HasEmbedding() {
			continue
		}

		score, ok := r.strategy.Similarity(query.Embedding, c.Embedding)
		if !ok {
			continue
		}
		if boost != nil {
			score += boost(c.Content)
		}
		scored = append(scored, models.ScoredFragment{Fragment: *c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
