package embedding

import (
	"fmt"
	"os"
	"time"

	"github.com/hyperjump/kotae/internal/config"
)

// New builds the embedder selected by cfg.Provider, wrapped in an LRU cache when cfg.CacheSize > 0.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	var inner Embedder
	switch cfg.Provider {
	case "ollama", "":
		inner = NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimensions, timeout)
	case "openai":
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("openai embedding provider: %s is not set", cfg.APIKeyEnv)
		}
		inner = NewOpenAIEmbedder(apiKey, cfg.BaseURL, cfg.Model, cfg.Dimensions, timeout)
	case "onnx":
		if cfg.ModelPath == "" {
			return nil, fmt.Errorf("onnx embedding provider: model_path is required")
		}
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		inner = e
	case "mock":
		inner = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	return NewCached(inner, cfg.CacheSize), nil
}
