package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/hyperjump/kotae/internal/config"
)

// New builds a generator for the configured provider.
func New(cfg config.LLMConfig) (*Generator, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	switch cfg.Provider {
	case "ollama", "":
		return NewGenerator(NewOllamaBackend(cfg.BaseURL, cfg.Model, timeout)), nil
	case "openai":
		key := ""
		if cfg.APIKeyEnv != "" {
			key = os.Getenv(cfg.APIKeyEnv)
		}
		if key == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai provider needs an API key in $%s", cfg.APIKeyEnv)
		}
		return NewGenerator(NewOpenAIBackend(key, cfg.BaseURL, cfg.Model, timeout)), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: ollama, openai)", cfg.Provider)
	}
}
