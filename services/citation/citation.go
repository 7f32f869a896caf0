// Package citation extracts [Source, Page N] references from generated answers
// and narrows retrieved evidence to what the answer actually cites.
package citation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/upb/catalog-rag/models"
)

// pattern matches "[<source>, Page <n>]" in any case. Answers are untrusted model
// output, so anything that does not match is simply not a citation.
var pattern = regexp.MustCompile(`(?i)\[(.*?),\s*Page\s*(\d+)\]`)

// Ref is one cited (source, page) pair, normalised as trimmed strings
type Ref struct {
	Source string
	Page   string
}

// Set is the distinct citations found in an answer
type Set map[Ref]struct{}

// Parse returns every citation in answer. The set is empty when none are found.
func Parse(answer string) Set {
	set := make(Set)
	for _, m := range pattern.FindAllStringSubmatch(answer, -1) {
		set[Ref{Source: strings.TrimSpace(m[1]), Page: strings.TrimSpace(m[2])}] = struct{}{}
	}
	return set
}

// Contains reports whether the fragment's source and page were cited
func (s Set) Contains(f models.Fragment) bool {
	_, ok := s[Ref{
		Source: strings.TrimSpace(f.SourceDocument),
		Page:   strconv.Itoa(f.PageNumber),
	}]
	return ok
}

// Filter keeps the fragments the answer cites, in their original order.
// It returns every fragment when the answer has no citations or none of them
// match, so the caller always has evidence to show.
func Filter(answer string, fragments []models.ScoredFragment) []models.ScoredFragment {
	cited := Parse(answer)
	if len(cited) == 0 {
		return fragments
	}

	kept := make([]models.ScoredFragment, 0, len(fragments))
	for _, f := range fragments {
		if cited.Contains(f.Fragment) {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return fragments
	}
	return kept
}
