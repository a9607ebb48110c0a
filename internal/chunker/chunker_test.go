package chunker

import (
	"strings"
	"testing"
)

// letterCounter counts one token per byte, for exact boundary tests.
type letterCounter struct{}

func (letterCounter) Count(text string) int { return len(text) }

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker(500, 50)
	text := "Artificial intelligence is the simulation of human intelligence by machines. " +
		"These systems can learn from data and improve over time."
	chunks := c.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != CleanText(text) {
		t.Errorf("chunk should be the cleaned input, got %q", chunks[0])
	}
}

func TestSplit_TinyTextDropped(t *testing.T) {
	c := NewChunker(500, 50)
	if chunks := c.Split("Too short."); chunks != nil {
		t.Errorf("text below the minimum token count should yield nil, got %v", chunks)
	}
}

func TestSplit_EmptyText(t *testing.T) {
	c := NewChunker(500, 50)
	if chunks := c.Split("   \n\t  "); chunks != nil {
		t.Errorf("whitespace-only text should yield nil, got %v", chunks)
	}
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog again and again. ")
	}
	c := NewChunker(40, 1, WithMinTokens(0))
	chunks := c.Split(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		next := splitSentences(chunks[i])
		if len(next) == 0 {
			t.Fatalf("chunk %d has no sentences", i)
		}
		head := strings.TrimSpace(next[0])
		if !strings.Contains(chunks[i-1], head) {
			t.Errorf("chunk %d prefix %q not found in previous chunk %q", i, head, chunks[i-1])
		}
	}
}

func TestSplit_NoSentenceLost(t *testing.T) {
	counter := letterCounter{}
	c := NewChunker(2, 1, WithTokenCounter(counter), WithMinTokens(0))
	input := "A. B. C."
	chunks := c.Split(input)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	total := 0
	for _, chunk := range chunks {
		total += counter.Count(chunk)
	}
	if total < counter.Count(input) {
		t.Errorf("total token coverage %d < input token count %d (chunks: %v)",
			total, counter.Count(input), chunks)
	}
	joined := strings.Join(chunks, " ")
	for _, sentence := range []string{"A.", "B.", "C."} {
		if !strings.Contains(joined, sentence) {
			t.Errorf("sentence %q dropped from chunks %v", sentence, chunks)
		}
	}
}

func TestSplit_OversizedSentenceSplitsOnWords(t *testing.T) {
	words := make([]string, 120)
	for i := range words {
		words[i] = "word"
	}
	// One long sentence, no internal boundaries.
	text := strings.Join(words, " ") + "."
	c := NewChunker(20, 4, WithMinTokens(0))
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected the long sentence to be split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if got := (ApproxCounter{}).Count(chunk); got > 26 {
			t.Errorf("chunk %d is %d tokens, well above the 20-token target", i, got)
		}
	}
}

func TestSplit_OverlapSeedsNextChunk(t *testing.T) {
	words := make([]string, 60)
	for i := range words {
		words[i] = "token"
	}
	text := strings.Join(words, " ") + "."
	c := NewChunker(10, 2, WithMinTokens(0))
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		nextWords := strings.Fields(chunks[i])
		if len(prevWords) < 2 || len(nextWords) < 2 {
			continue
		}
		if prevWords[len(prevWords)-1] != nextWords[1] && prevWords[len(prevWords)-1] != nextWords[0] {
			t.Errorf("chunk %d does not start with the previous chunk's tail", i)
		}
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  a  b  ", "a b"},
		{"hello\n\tworld", "hello world"},
		{"keep punctuation. and, this!", "keep punctuation. and, this!"},
		{"strip @#$% symbols", "strip  symbols"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestApproxCounter(t *testing.T) {
	c := ApproxCounter{}
	if got := c.Count("abcdefgh"); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
	if got := c.Count(""); got != 0 {
		t.Errorf("Count of empty = %d, want 0", got)
	}
}
