// Package vectorstore provides similarity search over chunk embeddings,
// backed either by an in-memory index or a Qdrant collection.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

// Hit is a single search result: the chunk that matched and its
// cosine similarity to the query (vectors are unit-norm, so inner
// product equals cosine similarity).
type Hit struct {
	ID    string
	Text  string
	Score float64
}

// VectorStore indexes chunk embeddings and answers nearest-neighbor queries.
// Rebuild replaces the entire contents atomically: readers either see the
// previous index or the new one, never a partially built state.
type VectorStore interface {
	// Ready reports whether the store holds a usable index.
	Ready() bool
	// Rebuild replaces the index with the given chunks. Each chunk must
	// carry an embedding of the store's dimension.
	Rebuild(ctx context.Context, chunks []models.Chunk) error
	// Search returns up to k hits ordered by descending similarity.
	// An empty store returns no hits and no error.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	// Count returns the number of indexed chunks.
	Count() int
	Close() error
}

// New creates a vector store for the configured backend.
func New(cfg *config.Config, dimensions int) (VectorStore, error) {
	switch cfg.Vector.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.Storage.VectorIndexPath, dimensions)
	case "qdrant":
		return NewQdrantStore(QdrantConfig{
			URL:        cfg.Vector.QdrantURL,
			APIKey:     cfg.Vector.QdrantAPIKey,
			Collection: cfg.Vector.Collection,
			Dimensions: dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: memory, qdrant)", cfg.Vector.Backend)
	}
}
