package documents

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap controls how much trailing context carries into
	// the next chunk; roughly overlap/5 words are repeated.
	DefaultChunkOverlap = 200

	// minChunkLength drops fragments too short to be useful context.
	minChunkLength = 50
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	sentence   = regexp.MustCompile(`[^.!?]+[.!?]+`)
	nonWord    = regexp.MustCompile(`[^\w\s]`)
)

// CleanText collapses every whitespace run to a single space and trims.
func CleanText(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// ChunkText splits text into chunks of about size characters on sentence
// boundaries. When a chunk is flushed its last overlap/5 words start the
// next one. Chunks of 50 characters or fewer are dropped.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	var (
		chunks  []string
		current string
	)
	for _, s := range sentences(text) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		if current != "" && utf8.RuneCountInString(current)+utf8.RuneCountInString(s) > size {
			chunks = append(chunks, strings.TrimSpace(current))
			current = tail(current, overlap/5) + " " + s
			continue
		}
		current += " " + s
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return slices.DeleteFunc(chunks, func(c string) bool {
		return utf8.RuneCountInString(c) <= minChunkLength
	})
}

// sentences splits on runs of terminal punctuation. Text after the last
// terminator is kept as a final sentence; text with no terminator at all is
// a single sentence.
func sentences(text string) []string {
	idx := sentence.FindAllStringIndex(text, -1)
	if len(idx) == 0 {
		return []string{text}
	}

	out := make([]string, 0, len(idx)+1)
	for _, loc := range idx {
		out = append(out, text[loc[0]:loc[1]])
	}
	if rest := text[idx[len(idx)-1][1]:]; strings.TrimSpace(rest) != "" {
		out = append(out, rest)
	}
	return out
}

func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

// ExtractKeywords returns up to max words longer than three characters,
// most frequent first. Ties keep first-occurrence order.
func ExtractKeywords(text string, max int) []string {
	if max <= 0 {
		max = 10
	}

	words := strings.Fields(nonWord.ReplaceAllString(strings.ToLower(text), ""))

	counts := map[string]int{}
	var order []string
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 3 {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})
	if len(order) > max {
		order = order[:max]
	}
	return order
}
