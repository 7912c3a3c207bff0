package core

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultChunkSize    = 900
	DefaultChunkOverlap = 200
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// CollapseWhitespace folds all whitespace runs into single spaces and trims.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// ChunkText splits cleaned text into consecutive slices of length size,
// advancing by size-overlap so neighbouring chunks share overlap characters.
// The final slice may be shorter than size. Empty cleaned text yields an
// empty slice; callers decide whether that is an error.
func ChunkText(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, size); size is %d", overlap, size)
	}

	clean := CollapseWhitespace(text)
	if clean == "" {
		return []string{}, nil
	}

	step := size - overlap
	var chunks []string
	for i := 0; ; i += step {
		end := i + size
		if end >= len(clean) {
			// Final slice; a further window would add nothing beyond the
			// overlap it already shares with this one.
			chunks = append(chunks, clean[i:])
			break
		}
		chunks = append(chunks, clean[i:end])
	}
	return chunks, nil
}
