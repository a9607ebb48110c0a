// Package evaluation scores retrieval quality and answer quality with
// cheap embedding and keyword heuristics.
package evaluation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
)

const (
	assessmentGood  = "Good"
	assessmentNeeds = "Needs improvement"

	// coverageComplete is the keyword coverage at which retrieval counts
	// as complete.
	coverageComplete = 0.5

	// Weights for the combined score.
	weightRelevance    = 0.5
	weightCoverage     = 0.2
	weightContextUsage = 0.2
	weightLength       = 0.1

	// goodScore is the combined score at which the recommendation flips
	// to Good.
	goodScore = 0.7
)

// Evaluator scores how well retrieval and answering served a query.
// Relevance uses the same embedder as retrieval, so scores are
// comparable to similarity thresholds.
type Evaluator struct {
	embedder     embedding.Embedder
	minRelevance float64
	logger       *zap.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// NewEvaluator creates an evaluator. minRelevance is the relevance score
// at which retrieval counts as relevant.
func NewEvaluator(embedder embedding.Embedder, minRelevance float64, opts ...Option) *Evaluator {
	e := &Evaluator{
		embedder:     embedder,
		minRelevance: minRelevance,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RelevanceScore returns the mean cosine similarity between the query and
// each retrieved text. No texts scores zero.
func (e *Evaluator) RelevanceScore(ctx context.Context, query string, texts []string) (float64, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	queryEmb, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("embed query: %w", err)
	}
	textEmbs, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed retrieved texts: %w", err)
	}
	var sum float64
	for _, emb := range textEmbs {
		var dot float64
		for i := range queryEmb {
			dot += float64(queryEmb[i] * emb[i])
		}
		sum += dot
	}
	return sum / float64(len(texts)), nil
}

// EvaluateRetrieval scores how well the retrieved texts match the query.
func (e *Evaluator) EvaluateRetrieval(ctx context.Context, query string, texts []string) (models.RetrievalEvaluation, error) {
	relevance, err := e.RelevanceScore(ctx, query, texts)
	if err != nil {
		return models.RetrievalEvaluation{}, err
	}

	keywords := keywordSet(query, 3)
	joined := strings.ToLower(strings.Join(texts, " "))
	covered := 0
	for kw := range keywords {
		if strings.Contains(joined, kw) {
			covered++
		}
	}
	coverage := 0.0
	if len(keywords) > 0 {
		coverage = float64(covered) / float64(len(keywords))
	}

	isRelevant := relevance >= e.minRelevance
	isComplete := coverage >= coverageComplete
	eval := models.RetrievalEvaluation{
		RelevanceScore: relevance,
		Coverage:       coverage,
		IsRelevant:     isRelevant,
		IsComplete:     isComplete,
		Assessment:     assessmentNeeds,
	}
	if isRelevant && isComplete {
		eval.Assessment = assessmentGood
	}
	return eval, nil
}

// EvaluateAnswer scores the generated answer against the context it was
// built from.
func (e *Evaluator) EvaluateAnswer(answer, contextText string) models.AnswerEvaluation {
	hasAnswer := strings.TrimSpace(answer) != ""

	keywords := keywordSet(contextText, 4)
	answerLower := strings.ToLower(answer)
	used := 0
	for kw := range keywords {
		if strings.Contains(answerLower, kw) {
			used++
		}
	}
	contextUsage := 0.0
	if len(keywords) > 0 {
		contextUsage = float64(used) / float64(len(keywords))
	}

	words := len(strings.Fields(answer))
	lengthScore := 0.5
	if words >= 10 && words <= 200 {
		lengthScore = 1.0
	}

	eval := models.AnswerEvaluation{
		HasAnswer:      hasAnswer,
		ContextUsage:   contextUsage,
		LengthScore:    lengthScore,
		OverallQuality: assessmentNeeds,
	}
	if hasAnswer && contextUsage > 0.3 {
		eval.OverallQuality = assessmentGood
	}
	return eval
}

// Evaluate runs the full evaluation of a query, its retrieved texts, and
// the generated answer.
func (e *Evaluator) Evaluate(ctx context.Context, query string, texts []string, answer string) (*models.Evaluation, error) {
	retrievalEval, err := e.EvaluateRetrieval(ctx, query, texts)
	if err != nil {
		return nil, err
	}
	answerEval := e.EvaluateAnswer(answer, strings.Join(texts, "\n\n"))

	overall := retrievalEval.RelevanceScore*weightRelevance +
		retrievalEval.Coverage*weightCoverage +
		answerEval.ContextUsage*weightContextUsage +
		answerEval.LengthScore*weightLength

	recommendation := assessmentNeeds
	if overall >= goodScore {
		recommendation = assessmentGood
	}
	e.logger.Debug("evaluated answer",
		zap.Float64("relevance", retrievalEval.RelevanceScore),
		zap.Float64("coverage", retrievalEval.Coverage),
		zap.Float64("overall", overall))

	return &models.Evaluation{
		Query:          query,
		Retrieval:      retrievalEval,
		Answer:         answerEval,
		OverallScore:   overall,
		Recommendation: recommendation,
	}, nil
}

// keywordSet extracts lowercase words longer than minLen characters.
func keywordSet(text string, minLen int) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) > minLen {
			set[w] = struct{}{}
		}
	}
	return set
}
