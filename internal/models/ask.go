package models

import (
	"fmt"
	"strings"
	"time"
)

// RetrievedChunk is a chunk returned by similarity search, with its cosine
// similarity to the query. Score is nominally in [-1, 1]; retrieval filters
// out scores below the configured threshold.
type RetrievedChunk struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question         string `json:"question"`
	TopK             int    `json:"top_k,omitempty"`
	UseSummarization bool   `json:"use_summarization,omitempty"`
	Evaluate         bool   `json:"evaluate,omitempty"`
}

// Validate rejects empty questions. TopK is left as-is; zero means
// "use the configured default".
func (r *AskRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("question cannot be empty")
	}
	return nil
}

// AskResponse is the answer produced for a question. Sources holds up to the
// first 3 retrieved chunk texts; Confidence is the mean similarity of the
// full retrieved set. UsedFallback marks answers from the degraded
// keyword-overlap path, which callers should treat as lower-confidence.
type AskResponse struct {
	Answer       string      `json:"answer"`
	Sources      []string    `json:"sources"`
	Confidence   float64     `json:"confidence"`
	NumSources   int         `json:"num_sources"`
	UsedFallback bool        `json:"used_fallback,omitempty"`
	Evaluation   *Evaluation `json:"evaluation,omitempty"`
}

// AnswerRecord is a persisted question/answer pair from the answer log.
type AnswerRecord struct {
	ID         string    `json:"id" db:"id"`
	Question   string    `json:"question" db:"question"`
	Answer     string    `json:"answer" db:"answer"`
	Confidence float64   `json:"confidence" db:"confidence"`
	NumSources int       `json:"num_sources" db:"num_sources"`
	Fallback   bool      `json:"fallback" db:"fallback"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
