// Package intent decides whether a query asks for visual evidence.
package intent

import "strings"

// VisualKeywords trigger image retrieval when found anywhere in the lower-cased query.
// Queries that are visual without using one of these words are missed.
var VisualKeywords = []string{
	"image",
	"diagram",
	"picture",
	"photo",
	"illustration",
	"show",
	"visual",
	"look like",
}

// IsVisual reports whether the query requests image content
func IsVisual(query string) bool {
	lower := strings.ToLower(query)
	for _, keyword := range VisualKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
