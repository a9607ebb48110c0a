package embedding

import (
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
)

// NewEmbedder creates an embedder from config. Provider "openai" needs a
// non-empty apiKey; "onnx" needs CGO and a model file; "mock" always works.
// An empty provider selects openai when apiKey is set, otherwise onnx.
func NewEmbedder(cfg *config.EmbeddingConfig, apiKey string) (Embedder, error) {
	provider := cfg.Provider
	if provider == "" {
		if apiKey != "" {
			provider = "openai"
		} else {
			provider = "onnx"
		}
	}
	switch provider {
	case "openai":
		e, err := NewOpenAIEmbedder(apiKey, cfg.Model, cfg.Dimensions, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "onnx":
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "mock":
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, onnx, mock)", provider)
	}
}
