package embedding

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()
	a, err := e.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text should produce the same embedding")
		}
	}

	c, err := e.Embed(ctx, "different text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should produce different embeddings")
	}
}

func TestMockEmbedderUnitNorm(t *testing.T) {
	e := NewMockEmbedder(32)
	emb, err := e.Embed(context.Background(), "normalize me")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(emb) != 32 {
		t.Fatalf("dimensions = %d, want 32", len(emb))
	}
	var norm float64
	for _, v := range emb {
		norm += float64(v * v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Errorf("norm = %f, want 1", math.Sqrt(norm))
	}
}

func TestMockEmbedderBatch(t *testing.T) {
	e := NewMockEmbedder(16)
	embs, err := e.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(embs) != 3 {
		t.Fatalf("got %d embeddings, want 3", len(embs))
	}
}

func TestEmbeddingCacheLRU(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})

	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	// "a" is now most recent; adding "c" evicts "b".
	c.Set("c", []float32{3})
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should still be cached")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be cached")
	}
}

func TestEmbeddingCacheConcurrentAccess(t *testing.T) {
	c := NewEmbeddingCache(8)
	for i := 0; i < 8; i++ {
		c.Set(fmt.Sprintf("key-%d", i), []float32{float32(i)})
	}

	// Concurrent Gets reorder the LRU list; run under -race.
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				key := fmt.Sprintf("key-%d", (g+i)%8)
				if v, ok := c.Get(key); ok && len(v) != 1 {
					t.Errorf("corrupt value for %s: %v", key, v)
				}
				if i%100 == 0 {
					c.Set(fmt.Sprintf("key-%d", i%16), []float32{1})
				}
			}
		}(g)
	}
	wg.Wait()

	// The list and map must still agree after the churn.
	hits := 0
	for i := 0; i < 16; i++ {
		if _, ok := c.Get(fmt.Sprintf("key-%d", i)); ok {
			hits++
		}
	}
	if hits == 0 || hits > 8 {
		t.Errorf("cache holds %d entries, want between 1 and capacity 8", hits)
	}
}

func TestSimpleTokenizer(t *testing.T) {
	tok := &SimpleTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tok.Tokenize("hello world", 8)
	if len(inputIDs) != 8 || len(attentionMask) != 8 || len(tokenTypeIDs) != 8 {
		t.Fatalf("unexpected lengths: %d %d %d", len(inputIDs), len(attentionMask), len(tokenTypeIDs))
	}
	if inputIDs[0] != 101 {
		t.Errorf("first token = %d, want [CLS] 101", inputIDs[0])
	}
	if attentionMask[0] != 1 || attentionMask[1] != 1 || attentionMask[2] != 1 {
		t.Error("attention mask should cover [CLS] and both words")
	}
	if inputIDs[3] != 102 {
		t.Errorf("token after words = %d, want [SEP] 102", inputIDs[3])
	}
	if attentionMask[7] != 0 {
		t.Error("padding should have zero attention")
	}
}

func TestNewEmbedderMock(t *testing.T) {
	cfg := &config.EmbeddingConfig{Provider: "mock", Dimensions: 48}
	e, err := NewEmbedder(cfg, "")
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	defer e.Close()
	if e.Dimensions() != 48 {
		t.Errorf("dimensions = %d, want 48", e.Dimensions())
	}
}

func TestNewEmbedderOpenAIRequiresKey(t *testing.T) {
	cfg := &config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small"}
	if _, err := NewEmbedder(cfg, ""); err == nil {
		t.Error("openai provider without a key should fail")
	}
}

func TestNewEmbedderUnknownProvider(t *testing.T) {
	cfg := &config.EmbeddingConfig{Provider: "quantum"}
	if _, err := NewEmbedder(cfg, ""); err == nil {
		t.Error("unknown provider should fail")
	}
}
