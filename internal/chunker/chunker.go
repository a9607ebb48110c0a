// Package chunker cleans document text and splits it into token-bounded,
// overlapping chunks for retrieval.
package chunker

import (
	"regexp"
	"strings"
)

// DefaultMinTokens is the smallest chunk (in tokens) worth keeping.
// Assembled chunks at or below this size are discarded, which can silently
// drop short trailing content; callers must tolerate chunk-count variance.
const DefaultMinTokens = 10

// sentenceBoundaryRe marks a sentence end: terminal punctuation followed by whitespace.
var sentenceBoundaryRe = regexp.MustCompile(`[.!?]\s+`)

// Chunker splits cleaned text into overlapping chunks close to a target
// token size. Sentences are kept whole unless a single sentence exceeds the
// target, in which case it is split on word boundaries with the same
// overlap policy.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	minTokens    int
	counter      TokenCounter
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithTokenCounter replaces the default byte-based token counter.
func WithTokenCounter(tc TokenCounter) Option {
	return func(c *Chunker) { c.counter = tc }
}

// WithMinTokens sets the minimum token count below which chunks are dropped.
// Pass a negative value to keep every chunk.
func WithMinTokens(n int) Option {
	return func(c *Chunker) { c.minTokens = n }
}

// NewChunker creates a chunker with the given target size and overlap, both
// in tokens.
func NewChunker(chunkSize, chunkOverlap int, opts ...Option) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	c := &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		minTokens:    DefaultMinTokens,
		counter:      ApproxCounter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// splitSentences splits text after each ".", "!", or "?" that is followed
// by whitespace. Any trailing text without a terminator becomes the last
// sentence.
func splitSentences(text string) []string {
	locs := sentenceBoundaryRe.FindAllStringIndex(text, -1)
	var sentences []string
	start := 0
	for _, loc := range locs {
		sentences = append(sentences, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// Split cleans text and returns its ordered chunks. A single pass
// accumulates sentences into a running chunk; when the next sentence would
// exceed the target size, the chunk is emitted and a new one is seeded with
// the previous chunk's trailing overlap slice plus the new sentence.
func (c *Chunker) Split(text string) []string {
	text = CleanText(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var current []string
	currentSize := 0

	for _, sentence := range splitSentences(text) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		sentenceTokens := c.counter.Count(sentence)

		if sentenceTokens > c.chunkSize {
			if len(current) > 0 {
				chunks = append(chunks, strings.Join(current, " "))
				current = nil
				currentSize = 0
			}
			current, currentSize, chunks = c.splitLongSentence(sentence, chunks)
			continue
		}

		if currentSize+sentenceTokens > c.chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			overlapText := strings.Join(tail(current, c.chunkOverlap), " ")
			if overlapText != "" {
				current = []string{overlapText, sentence}
			} else {
				current = []string{sentence}
			}
			currentSize = c.counter.Count(strings.Join(current, " "))
		} else {
			current = append(current, sentence)
			currentSize += sentenceTokens
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	kept := chunks[:0]
	for _, chunk := range chunks {
		if c.counter.Count(chunk) > c.minTokens {
			kept = append(kept, chunk)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// splitLongSentence splits a sentence that alone exceeds the chunk size on
// word boundaries, emitting full chunks and returning the leftover words as
// the new running chunk so sentence accumulation continues from there.
func (c *Chunker) splitLongSentence(sentence string, chunks []string) (current []string, currentSize int, out []string) {
	words := strings.Fields(sentence)
	var temp []string
	tempSize := 0
	for _, word := range words {
		wordTokens := c.counter.Count(word)
		if tempSize+wordTokens > c.chunkSize && len(temp) > 0 {
			chunks = append(chunks, strings.Join(temp, " "))
			overlap := tail(temp, c.chunkOverlap)
			next := make([]string, 0, len(overlap)+1)
			next = append(next, overlap...)
			next = append(next, word)
			temp = next
			tempSize = c.counter.Count(strings.Join(temp, " "))
		} else {
			temp = append(temp, word)
			tempSize += wordTokens
		}
	}
	return temp, tempSize, chunks
}

// tail returns the last n elements of parts (all of them when shorter).
func tail(parts []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if len(parts) > n {
		return parts[len(parts)-n:]
	}
	return parts
}
