// Package answer turns retrieved context into an answer, via an LLM when
// one is available and a keyword fallback when not.
// It defines a provider-agnostic LLM interface with an OpenAI implementation
// and a deterministic mock for testing.
package answer

import (
	"context"
	"errors"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid LLM configuration")
)

// LLM defines the interface for interacting with language models.
// Implementations must be stateless and thread-safe.
type LLM interface {
	// Generate produces text from a prompt using the configured model.
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMConfig holds common configuration options for LLM providers.
type LLMConfig struct {
	// Model specifies the model identifier (e.g., "gpt-4o")
	Model string

	// Temperature controls randomness (0.0 = deterministic)
	Temperature float64

	// MaxTokens limits the response length (0 = provider default)
	MaxTokens int

	// APIKey is the authentication key for the provider
	APIKey string
}
