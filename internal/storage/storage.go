// Package storage persists documents, chunks, and the answer log.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Storage is the persistence layer behind the ingest pipeline and the
// answer log.
type Storage interface {
	// ReplaceCorpus atomically replaces all documents and chunks with
	// the given set, in one transaction.
	ReplaceCorpus(ctx context.Context, docs []*models.Document, chunks []*models.Chunk) error
	// ListChunks returns all chunks ordered by document and chunk index.
	ListChunks(ctx context.Context) ([]*models.Chunk, error)
	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int64, error)
	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int64, error)
	// SaveAnswer appends a question/answer pair to the answer log.
	SaveAnswer(ctx context.Context, rec *models.AnswerRecord) error
	// RecentAnswers returns the most recent answers, newest first.
	RecentAnswers(ctx context.Context, limit int) ([]*models.AnswerRecord, error)
	Close() error
}
