// -----------------------------------------------------------------------
// Text Chunker - sentence-boundary-aware sliding windows over extracted
// document text
// -----------------------------------------------------------------------

package chunker

import (
	"strings"
	"unicode"
)

// Chunker splits document text into overlapping windows. Windows grow
// sentence by sentence up to the target word count; adjacent windows
// share roughly the overlap word count so no statement is stranded at a
// boundary.
type Chunker struct {
	targetWords  int
	overlapWords int
	minWords     int
}

// New creates a chunker. Zero or negative parameters get the defaults
// used throughout: 384-word target, 32-word overlap, 50-word minimum.
func New(targetWords, overlapWords, minWords int) *Chunker {
	if targetWords <= 0 {
		targetWords = 384
	}
	if overlapWords < 0 {
		overlapWords = 32
	}
	if minWords <= 0 {
		minWords = 50
	}
	return &Chunker{
		targetWords:  targetWords,
		overlapWords: overlapWords,
		minWords:     minWords,
	}
}

// Chunk splits text into overlapping windows. Chunks shorter than the
// minimum word count are folded into their predecessor; a document
// shorter than the minimum yields a single chunk rather than nothing.
func (c *Chunker) Chunk(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentWords := 0
	seeded := 0 // count of leading sentences carried over as overlap

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Seed the next window with trailing sentences up to the
		// overlap budget.
		var overlap []string
		overlapWords := 0
		for i := len(current) - 1; i >= 0 && overlapWords < c.overlapWords; i-- {
			overlap = append([]string{current[i]}, overlap...)
			overlapWords += wordCount(current[i])
		}
		current = overlap
		currentWords = overlapWords
		seeded = len(overlap)
	}

	for _, sentence := range sentences {
		words := wordCount(sentence)
		if currentWords > 0 && currentWords+words > c.targetWords {
			flush()
		}
		current = append(current, sentence)
		currentWords += words
	}

	// Trailing remainder: keep it if it stands on its own, otherwise
	// fold its fresh sentences into the last emitted chunk. The seeded
	// overlap sentences are already part of that chunk.
	if len(current) > seeded {
		tail := strings.Join(current, " ")
		if wordCount(tail) >= c.minWords || len(chunks) == 0 {
			chunks = append(chunks, tail)
		} else {
			fresh := strings.Join(current[seeded:], " ")
			chunks[len(chunks)-1] = chunks[len(chunks)-1] + " " + fresh
		}
	}

	return chunks
}

// splitSentences breaks text on terminal punctuation followed by
// whitespace. Abbreviation handling is deliberately loose; a split
// mid-abbreviation only shifts a window boundary.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(strings.TrimSpace(text))
	for i := 0; i < len(runes); i++ {
		b.WriteRune(runes[i])
		if isTerminal(runes[i]) {
			// Consume closing quotes and repeated punctuation
			for i+1 < len(runes) && (isTerminal(runes[i+1]) || runes[i+1] == '"' || runes[i+1] == '\'' || runes[i+1] == ')') {
				i++
				b.WriteRune(runes[i])
			}
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				sentence := strings.TrimSpace(b.String())
				if sentence != "" {
					sentences = append(sentences, sentence)
				}
				b.Reset()
			}
		}
	}
	if trailing := strings.TrimSpace(b.String()); trailing != "" {
		sentences = append(sentences, trailing)
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
