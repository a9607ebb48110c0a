package answer

import (
	"context"

	"go.uber.org/zap"
)

// Generator produces answers from retrieved context. When an LLM is
// configured it is tried first; any LLM failure degrades to the keyword
// fallback rather than surfacing an error to the caller.
type Generator struct {
	llm    LLM
	logger *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator creates an answer generator. llm may be nil, in which case
// every answer uses the fallback.
func NewGenerator(llm LLM, opts ...Option) *Generator {
	g := &Generator{llm: llm, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Answer generates an answer for the question given retrieved context.
// The second return value reports whether the fallback was used.
func (g *Generator) Answer(ctx context.Context, contextText, question string) (string, bool) {
	if g.llm != nil {
		prompt := BuildPrompt(contextText, question)
		text, err := g.llm.Generate(ctx, prompt)
		if err == nil {
			return text, false
		}
		g.logger.Warn("LLM request failed, using fallback response", zap.Error(err))
	}
	return FallbackAnswer(contextText, question), true
}
