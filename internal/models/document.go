// Package models defines core data structures for documents, chunks, and answers.
package models

import "time"

// Document is the raw text extracted from a single source file.
// It lives only between extraction and chunking.
type Document struct {
	ID        string    `json:"id" db:"id"`
	Source    string    `json:"source" db:"source"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Chunk is a contiguous span of cleaned document text used as the retrieval unit.
// Embedding is populated once after chunking and immutable thereafter.
type Chunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	BatchID    string    `json:"batch_id" db:"batch_id"`
	Content    string    `json:"content" db:"content"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Embedding  []float32 `json:"-" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
