// Package pipeline wires extraction, chunking, embedding, retrieval, and
// answering into the question-answering flow.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/evaluation"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

const noResultsAnswer = "I couldn't find relevant information to answer your question."

// Deps holds the components a Pipeline is built from. All fields except
// Evaluator are required; a nil Evaluator disables evaluation.
type Deps struct {
	Extractor *extract.Extractor
	Chunker   *chunker.Chunker
	Embedder  embedding.Embedder
	Store     vectorstore.VectorStore
	Storage   storage.Storage
	Retriever *retrieval.Retriever
	Generator *answer.Generator
	Evaluator *evaluation.Evaluator
	DataDir   string
	Logger    *zap.Logger
}

// Pipeline is the end-to-end RAG flow: documents in, answers out.
type Pipeline struct {
	deps   Deps
	logger *zap.Logger
}

// New creates a pipeline from its dependencies.
func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{deps: deps, logger: logger}
}

// ProcessResult summarizes a document processing run.
type ProcessResult struct {
	NumDocuments int      `json:"num_documents"`
	NumChunks    int      `json:"num_chunks"`
	Skipped      []string `json:"skipped,omitempty"`
	Rebuilt      bool     `json:"rebuilt"`
}

// ProcessDocuments extracts, chunks, embeds, and indexes everything in
// the data directory. When the vector store is already populated and
// force is false the run is skipped. The stored corpus and the index are
// each replaced atomically; a failure partway leaves the old ones
// serving queries.
func (p *Pipeline) ProcessDocuments(ctx context.Context, force bool) (*ProcessResult, error) {
	if p.deps.Store.Ready() && !force {
		p.logger.Info("vector store already populated, skipping processing")
		nDocs, err := p.deps.Storage.CountDocuments(ctx)
		if err != nil {
			return nil, fmt.Errorf("count documents: %w", err)
		}
		nChunks, err := p.deps.Storage.CountChunks(ctx)
		if err != nil {
			return nil, fmt.Errorf("count chunks: %w", err)
		}
		return &ProcessResult{
			NumDocuments: int(nDocs),
			NumChunks:    int(nChunks),
		}, nil
	}

	docs, skipped, err := p.deps.Extractor.ExtractDir(p.deps.DataDir)
	if err != nil {
		return nil, fmt.Errorf("extract documents: %w", err)
	}
	for _, path := range skipped {
		p.logger.Warn("skipping unreadable document", zap.String("path", path))
	}

	batchID := uuid.NewString()
	var chunks []*models.Chunk
	for _, doc := range docs {
		for i, text := range p.deps.Chunker.Split(doc.Content) {
			chunks = append(chunks, &models.Chunk{
				ID:         uuid.NewString(),
				DocumentID: doc.ID,
				BatchID:    batchID,
				Content:    text,
				ChunkIndex: i,
			})
		}
	}
	p.logger.Info("chunked documents",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)))

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		embeddings, err := p.deps.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		for i, c := range chunks {
			c.Embedding = embeddings[i]
		}
	}

	if err := p.deps.Storage.ReplaceCorpus(ctx, docs, chunks); err != nil {
		return nil, fmt.Errorf("persist corpus: %w", err)
	}

	indexed := make([]models.Chunk, len(chunks))
	for i, c := range chunks {
		indexed[i] = *c
	}
	if err := p.deps.Store.Rebuild(ctx, indexed); err != nil {
		return nil, fmt.Errorf("rebuild vector index: %w", err)
	}

	p.logger.Info("processing complete",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)))
	return &ProcessResult{
		NumDocuments: len(docs),
		NumChunks:    len(chunks),
		Skipped:      skipped,
		Rebuilt:      true,
	}, nil
}

// Ask answers a question from the indexed corpus.
func (p *Pipeline) Ask(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	retrieved, err := p.deps.Retriever.Retrieve(ctx, req.Question, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(retrieved) == 0 {
		return &models.AskResponse{
			Answer:     noResultsAnswer,
			Sources:    []string{},
			Confidence: 0,
			NumSources: 0,
		}, nil
	}

	texts := make([]string, len(retrieved))
	var confidence float64
	for i, r := range retrieved {
		texts[i] = r.Text
		confidence += r.Score
	}
	confidence /= float64(len(retrieved))

	contextText := strings.Join(texts, "\n\n")
	if req.UseSummarization {
		if summary := answer.SummarizeChunks(texts, answer.DefaultSummaryLength); summary != "" {
			contextText = summary
		}
	}

	text, usedFallback := p.deps.Generator.Answer(ctx, contextText, req.Question)

	sources := texts
	if len(sources) > 3 {
		sources = sources[:3]
	}
	resp := &models.AskResponse{
		Answer:       text,
		Sources:      sources,
		Confidence:   confidence,
		NumSources:   len(retrieved),
		UsedFallback: usedFallback,
	}

	if req.Evaluate && p.deps.Evaluator != nil {
		eval, err := p.deps.Evaluator.Evaluate(ctx, req.Question, texts, text)
		if err != nil {
			p.logger.Warn("evaluation failed", zap.Error(err))
		} else {
			resp.Evaluation = eval
		}
	}

	p.saveAnswer(ctx, req.Question, resp)
	return resp, nil
}

// saveAnswer logs the answer to storage. Failures are logged, not
// returned; answering must not depend on the log.
func (p *Pipeline) saveAnswer(ctx context.Context, question string, resp *models.AskResponse) {
	rec := &models.AnswerRecord{
		ID:         uuid.NewString(),
		Question:   question,
		Answer:     resp.Answer,
		Confidence: resp.Confidence,
		NumSources: resp.NumSources,
		Fallback:   resp.UsedFallback,
	}
	if err := p.deps.Storage.SaveAnswer(ctx, rec); err != nil {
		p.logger.Warn("failed to save answer", zap.Error(err))
	}
}

// Status describes the pipeline's current corpus.
type Status struct {
	VectorDBLoaded bool  `json:"vector_db_loaded"`
	NumDocuments   int64 `json:"num_documents"`
	NumChunks      int64 `json:"num_chunks"`
	IndexedChunks  int   `json:"indexed_chunks"`
}

// Status reports corpus and index counts.
func (p *Pipeline) Status(ctx context.Context) (*Status, error) {
	nDocs, err := p.deps.Storage.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	nChunks, err := p.deps.Storage.CountChunks(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		VectorDBLoaded: p.deps.Store.Ready(),
		NumDocuments:   nDocs,
		NumChunks:      nChunks,
		IndexedChunks:  p.deps.Store.Count(),
	}, nil
}

// RecentAnswers returns the latest entries from the answer log.
func (p *Pipeline) RecentAnswers(ctx context.Context, limit int) ([]*models.AnswerRecord, error) {
	return p.deps.Storage.RecentAnswers(ctx, limit)
}

// Ready reports whether the vector store can serve queries.
func (p *Pipeline) Ready() bool {
	return p.deps.Store.Ready()
}
