package ingest

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is how many characters consecutive chunks share
	DefaultChunkOverlap = 200

	// MinChunkLength drops trimmed chunks of this many characters or fewer
	MinChunkLength = 30
)

// ChunkText splits text into overlapping windows of size characters that
// advance by size-overlap. Windows are trimmed and kept only when longer than
// MinChunkLength.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	step := size - overlap

	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if utf8.RuneCountInString(chunk) > MinChunkLength {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
