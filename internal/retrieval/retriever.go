// Package retrieval finds the chunks most similar to a query.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

// Retriever embeds queries and searches the vector store, keeping only
// hits at or above the similarity threshold. The threshold is applied
// after the top-k search, so fewer than k chunks may come back.
type Retriever struct {
	embedder  embedding.Embedder
	store     vectorstore.VectorStore
	topK      int
	threshold float64
	logger    *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// NewRetriever creates a retriever. topK is the number of candidates
// fetched from the store; threshold is the minimum similarity kept.
func NewRetriever(embedder embedding.Embedder, store vectorstore.VectorStore, topK int, threshold float64, opts ...Option) *Retriever {
	r := &Retriever{
		embedder:  embedder,
		store:     store,
		topK:      topK,
		threshold: threshold,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns chunks relevant to the query, ordered by descending
// similarity. topK <= 0 uses the retriever's default. An empty store
// yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]models.RetrievedChunk, error) {
	if topK <= 0 {
		topK = r.topK
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.store.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	chunks := make([]models.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		if h.Score >= r.threshold {
			chunks = append(chunks, models.RetrievedChunk{Text: h.Text, Score: h.Score})
		}
	}
	r.logger.Debug("retrieved chunks",
		zap.Int("candidates", len(hits)),
		zap.Int("kept", len(chunks)),
		zap.Float64("threshold", r.threshold))
	return chunks, nil
}
