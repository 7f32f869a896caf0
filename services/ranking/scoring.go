package ranking

import (
	"math"
	"strings"
	"unicode/utf8"
)

// SimilarityFunc scores a query vector against a candidate vector.
// ok is false when the pair cannot be scored (empty or mismatched dimensions).
type SimilarityFunc func(query, candidate []float64) (score float64, ok bool)

// Cosine computes true cosine similarity and does not assume normalized input.
// A zero-norm vector scores 0.
func Cosine(query, candidate []float64) (float64, bool) {
	if len(query) == 0 || len(query) != len(candidate) {
		return 0, false
	}

	var dot, normQ, normC float64
	for i := range query {
		dot += query[i] * candidate[i]
		normQ += query[i] * query[i]
		normC += candidate[i] * candidate[i]
	}
	if normQ == 0 || normC == 0 {
		return 0, true
	}

	score := dot / (math.Sqrt(normQ) * math.Sqrt(normC))
	if math.IsNaN(score) {
		return 0, false
	}
	return score, true
}

// BoostFunc returns the additive boost for a fragment's content
type BoostFunc func(content string) float64

// Booster derives a per-query boost function. It is called once per ranking pass.
type Booster interface {
	ForQuery(query string) BoostFunc
}

// ScoringStrategy combines a base similarity with an optional boost policy
type ScoringStrategy struct {
	Similarity SimilarityFunc
	Booster    Booster
}

// TextStrategy is cosine similarity plus the default keyword boost
func TextStrategy() ScoringStrategy {
	return ScoringStrategy{Similarity: Cosine, Booster: DefaultKeywordBoost()}
}

// ImageStrategy is plain cosine similarity. Image content is a description and is never token-matched.
func ImageStrategy() ScoringStrategy {
	return ScoringStrategy{Similarity: Cosine}
}

const (
	// DefaultBoostIncrement is added once per distinct matching query token
	DefaultBoostIncrement = 0.15

	// DefaultMinTokenLength is the shortest query token considered for boosting
	DefaultMinTokenLength = 4
)

// KeywordBoost adds a fixed increment for every distinct query token found as a
// substring of the lower-cased content. Boosts accumulate and are not capped.
type KeywordBoost struct {
	Increment      float64
	MinTokenLength int
}

// DefaultKeywordBoost returns the boost used for text retrieval
func DefaultKeywordBoost() KeywordBoost {
	return KeywordBoost{
		Increment:      DefaultBoostIncrement,
		MinTokenLength: DefaultMinTokenLength,
	}
}

// Tokens splits the query on whitespace and keeps distinct lower-cased tokens
// of at least MinTokenLength characters, in first-seen order.
func (k KeywordBoost) Tokens(query string) []string {
	fields := strings.Fields(query)
	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))

	for _, field := range fields {
		if utf8.RuneCountInString(field) < k.MinTokenLength {
			continue
		}
		token := strings.ToLower(field)
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}

// ForQuery implements Booster
func (k KeywordBoost) ForQuery(query string) BoostFunc {
	tokens := k.Tokens(query)
	if len(tokens) == 0 {
		return nil
	}
	return func(content string) float64 {
		lower := strings.ToLower(content)
		var boost float64
		for _, token := range tokens {
			if strings.Contains(lower, token) {
				boost += k.Increment
			}
		}
		return boost
	}
}
