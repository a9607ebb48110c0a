package models

// RetrievalEvaluation scores how well the retrieved chunks match the query.
type RetrievalEvaluation struct {
	RelevanceScore float64 `json:"relevance_score"`
	Coverage       float64 `json:"coverage"`
	IsRelevant     bool    `json:"is_relevant"`
	IsComplete     bool    `json:"is_complete"`
	Assessment     string  `json:"assessment"`
}

// AnswerEvaluation scores the produced answer against the retrieved context.
type AnswerEvaluation struct {
	HasAnswer      bool    `json:"has_answer"`
	ContextUsage   float64 `json:"context_usage"`
	LengthScore    float64 `json:"length_score"`
	OverallQuality string  `json:"overall_quality"`
}

// Evaluation is the full post-hoc report for one question/answer round.
// These are heuristics for manual inspection, not guarantees.
type Evaluation struct {
	Query          string              `json:"query"`
	Retrieval      RetrievalEvaluation `json:"retrieval_evaluation"`
	Answer         AnswerEvaluation    `json:"answer_evaluation"`
	OverallScore   float64             `json:"overall_score"`
	Recommendation string              `json:"recommendation"`
}
