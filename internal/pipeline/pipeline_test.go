package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

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

const testDoc = "The mitochondria is the powerhouse of the cell and produces energy. " +
	"Ribosomes synthesize proteins from amino acids inside the cell."

func newTestPipeline(t *testing.T, threshold float64, llm answer.LLM) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "cell.txt"), []byte(testDoc), 0644); err != nil {
		t.Fatal(err)
	}

	embedder := embedding.NewMockEmbedder(64)
	store, err := vectorstore.NewMemoryStore(filepath.Join(dir, "index.bin"), 64)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	db, err := storage.NewSQLiteStorage(filepath.Join(dir, "kotae.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	p := New(Deps{
		Extractor: extract.NewExtractor([]string{".txt"}),
		Chunker:   chunker.NewChunker(500, 50),
		Embedder:  embedder,
		Store:     store,
		Storage:   db,
		Retriever: retrieval.NewRetriever(embedder, store, 3, threshold),
		Generator: answer.NewGenerator(llm),
		Evaluator: evaluation.NewEvaluator(embedder, 0.6),
		DataDir:   dataDir,
	})
	return p, dataDir
}

func TestProcessDocuments(t *testing.T) {
	p, _ := newTestPipeline(t, 0.5, nil)
	res, err := p.ProcessDocuments(context.Background(), false)
	if err != nil {
		t.Fatalf("ProcessDocuments: %v", err)
	}
	if res.NumDocuments != 1 {
		t.Errorf("documents = %d, want 1", res.NumDocuments)
	}
	if res.NumChunks == 0 {
		t.Error("expected at least one chunk")
	}
	if !res.Rebuilt {
		t.Error("first run should rebuild the index")
	}
	if !p.Ready() {
		t.Error("pipeline should be ready after processing")
	}
}

func TestProcessDocumentsSkipsWhenReady(t *testing.T) {
	p, dataDir := newTestPipeline(t, 0.5, nil)
	ctx := context.Background()
	if _, err := p.ProcessDocuments(ctx, false); err != nil {
		t.Fatalf("first ProcessDocuments: %v", err)
	}

	// New file appears but the store is already populated.
	if err := os.WriteFile(filepath.Join(dataDir, "new.txt"),
		[]byte("Entirely new content that was added after the initial indexing run completed."), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := p.ProcessDocuments(ctx, false)
	if err != nil {
		t.Fatalf("second ProcessDocuments: %v", err)
	}
	if res.Rebuilt {
		t.Error("second run without force should skip")
	}
	if res.NumDocuments != 1 {
		t.Errorf("skip run should report stored count 1, got %d", res.NumDocuments)
	}

	forced, err := p.ProcessDocuments(ctx, true)
	if err != nil {
		t.Fatalf("forced ProcessDocuments: %v", err)
	}
	if !forced.Rebuilt {
		t.Error("forced run should rebuild")
	}
	if forced.NumDocuments != 2 {
		t.Errorf("forced run documents = %d, want 2", forced.NumDocuments)
	}
}

// failingCountStorage wraps a Storage and fails the count queries.
type failingCountStorage struct {
	storage.Storage
	err error
}

func (f failingCountStorage) CountDocuments(ctx context.Context) (int64, error) {
	return 0, f.err
}

func TestProcessDocumentsSkipSurfacesCountError(t *testing.T) {
	p, _ := newTestPipeline(t, 0.5, nil)
	ctx := context.Background()
	if _, err := p.ProcessDocuments(ctx, false); err != nil {
		t.Fatalf("first ProcessDocuments: %v", err)
	}

	dbErr := errors.New("database is locked")
	p.deps.Storage = failingCountStorage{Storage: p.deps.Storage, err: dbErr}

	_, err := p.ProcessDocuments(ctx, false)
	if err == nil {
		t.Fatal("skip run should surface count errors, not report zero counts")
	}
	if !errors.Is(err, dbErr) {
		t.Errorf("error = %v, want wrapped %v", err, dbErr)
	}
}

func TestAskReturnsAnswer(t *testing.T) {
	p, _ := newTestPipeline(t, -1, answer.NewMockLLM("the cell produces energy"))
	ctx := context.Background()
	if _, err := p.ProcessDocuments(ctx, false); err != nil {
		t.Fatalf("ProcessDocuments: %v", err)
	}

	resp, err := p.Ask(ctx, &models.AskRequest{Question: "What does the mitochondria do?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Answer != "the cell produces energy" {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.UsedFallback {
		t.Error("LLM answer should not be marked fallback")
	}
	if resp.NumSources == 0 || len(resp.Sources) == 0 {
		t.Error("expected sources")
	}
	if len(resp.Sources) > 3 {
		t.Errorf("sources capped at 3, got %d", len(resp.Sources))
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	p, _ := newTestPipeline(t, 0.5, nil)
	if _, err := p.Ask(context.Background(), &models.AskRequest{Question: "   "}); err == nil {
		t.Error("empty question should be rejected")
	}
}

func TestAskNoRelevantChunks(t *testing.T) {
	// Threshold 0.99 rejects everything the mock embedder retrieves for
	// an unrelated question.
	p, _ := newTestPipeline(t, 0.99, answer.NewMockLLM("unused"))
	ctx := context.Background()
	if _, err := p.ProcessDocuments(ctx, false); err != nil {
		t.Fatalf("ProcessDocuments: %v", err)
	}

	resp, err := p.Ask(ctx, &models.AskRequest{Question: "completely unrelated query about spaceships"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(resp.Answer, "couldn't find relevant information") {
		t.Errorf("answer = %q, want no-results message", resp.Answer)
	}
	if resp.Confidence != 0 || resp.NumSources != 0 {
		t.Errorf("no-results response should have zero confidence and sources: %+v", resp)
	}
}

func TestAskFallbackOnLLMError(t *testing.T) {
	p, _ := newTestPipeline(t, -1, answer.NewMockLLMWithError(context.DeadlineExceeded))
	ctx := context.Background()
	if _, err := p.ProcessDocuments(ctx, false); err != nil {
		t.Fatalf("ProcessDocuments: %v", err)
	}

	resp, err := p.Ask(ctx, &models.AskRequest{Question: "What does the mitochondria do?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !resp.UsedFallback {
		t.Error("LLM failure should degrade to fallback, not error")
	}
	if resp.Answer == "" {
		t.Error("fallback should still produce an answer")
	}
}

func TestAskWithEvaluation(t *testing.T) {
	p, _ := newTestPipeline(t, -1, answer.NewMockLLM("The mitochondria produces energy for the cell."))
	ctx := context.Background()
	if _, err := p.ProcessDocuments(ctx, false); err != nil {
		t.Fatalf("ProcessDocuments: %v", err)
	}

	resp, err := p.Ask(ctx, &models.AskRequest{Question: "What does the mitochondria do?", Evaluate: true})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Evaluation == nil {
		t.Fatal("expected evaluation in response")
	}
	if resp.Evaluation.Query != "What does the mitochondria do?" {
		t.Errorf("evaluation query = %q", resp.Evaluation.Query)
	}
}

func TestAskLogsAnswer(t *testing.T) {
	p, _ := newTestPipeline(t, -1, answer.NewMockLLM("logged answer"))
	ctx := context.Background()
	if _, err := p.ProcessDocuments(ctx, false); err != nil {
		t.Fatalf("ProcessDocuments: %v", err)
	}
	if _, err := p.Ask(ctx, &models.AskRequest{Question: "What is in the cell?"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	records, err := p.RecentAnswers(ctx, 10)
	if err != nil {
		t.Fatalf("RecentAnswers: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d log entries, want 1", len(records))
	}
	if records[0].Answer != "logged answer" {
		t.Errorf("logged answer = %q", records[0].Answer)
	}
}

func TestStatus(t *testing.T) {
	p, _ := newTestPipeline(t, 0.5, nil)
	ctx := context.Background()
	st, err := p.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.VectorDBLoaded {
		t.Error("store should not be loaded before processing")
	}

	if _, err := p.ProcessDocuments(ctx, false); err != nil {
		t.Fatalf("ProcessDocuments: %v", err)
	}
	st, err = p.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.VectorDBLoaded {
		t.Error("store should be loaded after processing")
	}
	if st.NumDocuments != 1 || st.NumChunks == 0 || st.IndexedChunks != int(st.NumChunks) {
		t.Errorf("unexpected status: %+v", st)
	}
}
