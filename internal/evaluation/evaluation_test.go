package evaluation

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(embedding.NewMockEmbedder(64), 0.6)
}

func TestRelevanceScoreEmptyTexts(t *testing.T) {
	score, err := newTestEvaluator().RelevanceScore(context.Background(), "query", nil)
	if err != nil {
		t.Fatalf("RelevanceScore: %v", err)
	}
	if score != 0 {
		t.Errorf("score for no texts = %f, want 0", score)
	}
}

func TestRelevanceScoreIdenticalText(t *testing.T) {
	// The mock embedder is deterministic, so identical text has
	// similarity 1 with itself.
	score, err := newTestEvaluator().RelevanceScore(context.Background(), "same text", []string{"same text"})
	if err != nil {
		t.Fatalf("RelevanceScore: %v", err)
	}
	if score < 0.99 {
		t.Errorf("score for identical text = %f, want ~1", score)
	}
}

func TestEvaluateRetrievalCoverage(t *testing.T) {
	ev := newTestEvaluator()
	eval, err := ev.EvaluateRetrieval(context.Background(),
		"goroutine scheduler preemption",
		[]string{"The goroutine scheduler uses preemption points."})
	if err != nil {
		t.Fatalf("EvaluateRetrieval: %v", err)
	}
	if eval.Coverage != 1.0 {
		t.Errorf("coverage = %f, want 1.0 (all keywords present)", eval.Coverage)
	}
	if !eval.IsComplete {
		t.Error("full coverage should be complete")
	}
}

func TestEvaluateRetrievalNoKeywordOverlap(t *testing.T) {
	ev := newTestEvaluator()
	eval, err := ev.EvaluateRetrieval(context.Background(),
		"quantum entanglement basics",
		[]string{"Completely unrelated cooking recipe text."})
	if err != nil {
		t.Fatalf("EvaluateRetrieval: %v", err)
	}
	if eval.Coverage != 0 {
		t.Errorf("coverage = %f, want 0", eval.Coverage)
	}
	if eval.IsComplete {
		t.Error("zero coverage should not be complete")
	}
	if eval.Assessment != "Needs improvement" {
		t.Errorf("assessment = %q", eval.Assessment)
	}
}

func TestEvaluateAnswerLengthScore(t *testing.T) {
	ev := newTestEvaluator()

	short := ev.EvaluateAnswer("Too short.", "context words here")
	if short.LengthScore != 0.5 {
		t.Errorf("short answer length score = %f, want 0.5", short.LengthScore)
	}

	good := ev.EvaluateAnswer(strings.Repeat("word ", 50), "context words here")
	if good.LengthScore != 1.0 {
		t.Errorf("mid-length answer length score = %f, want 1.0", good.LengthScore)
	}

	long := ev.EvaluateAnswer(strings.Repeat("word ", 250), "context words here")
	if long.LengthScore != 0.5 {
		t.Errorf("long answer length score = %f, want 0.5", long.LengthScore)
	}
}

func TestEvaluateAnswerEmpty(t *testing.T) {
	eval := newTestEvaluator().EvaluateAnswer("   ", "some context here")
	if eval.HasAnswer {
		t.Error("whitespace answer should not count as an answer")
	}
	if eval.OverallQuality != "Needs improvement" {
		t.Errorf("quality = %q", eval.OverallQuality)
	}
}

func TestEvaluateSelfConsistency(t *testing.T) {
	// An answer assembled verbatim from the retrieved texts must score
	// well on context usage and coverage.
	ev := newTestEvaluator()
	texts := []string{
		"Artificial intelligence is the simulation of human intelligence by machines.",
		"Intelligent systems can learn and adapt from data.",
	}
	answer := strings.Join(texts, " ")
	eval, err := ev.Evaluate(context.Background(), "What is artificial intelligence?", texts, answer)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.Answer.ContextUsage < 0.9 {
		t.Errorf("context usage = %f, want ~1 for verbatim answer", eval.Answer.ContextUsage)
	}
	if !eval.Answer.HasAnswer {
		t.Error("non-empty answer should register")
	}
	if eval.OverallScore < 0 || eval.OverallScore > 1 {
		t.Errorf("overall score %f out of range", eval.OverallScore)
	}
	if eval.Query != "What is artificial intelligence?" {
		t.Errorf("query not carried through: %q", eval.Query)
	}
}

func TestEvaluateRecommendationThreshold(t *testing.T) {
	ev := newTestEvaluator()
	texts := []string{"identical text"}
	// Identical query and text maximizes relevance; coverage and usage
	// follow from the shared words.
	eval, err := ev.Evaluate(context.Background(), "identical text", texts,
		"identical text repeated enough times to pass the length check: "+strings.Repeat("identical text ", 10))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.OverallScore < 0.7 {
		t.Fatalf("overall score = %f, expected >= 0.7 for a perfect match", eval.OverallScore)
	}
	if eval.Recommendation != "Good" {
		t.Errorf("recommendation = %q, want Good", eval.Recommendation)
	}
}
