// Package config provides configuration loading and structs for kotae.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	DataPath  string          `yaml:"data_path"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Storage   StorageConfig   `yaml:"storage"`
	Vector    VectorConfig    `yaml:"vector"`
	Server    ServerConfig    `yaml:"server"`
}

// IngestConfig holds file discovery settings.
type IngestConfig struct {
	Extensions []string `yaml:"extensions"`
}

// ChunkingConfig holds hybrid chunking budgets, in characters.
// ChunkOverlap is nil until set; zero is a valid overlap.
type ChunkingConfig struct {
	ChunkSize    int  `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap *int `yaml:"chunk_overlap,omitempty" validate:"required,gte=0,ltfield=ChunkSize"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider" validate:"oneof=ollama openai onnx mock"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Dimensions  int    `yaml:"dimensions" validate:"gt=0"`
	BatchSize   int    `yaml:"batch_size" validate:"gt=0"`
	CacheSize   int    `yaml:"cache_size" validate:"gte=0"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
	ModelPath   string `yaml:"model_path"`
	MaxTokens   int    `yaml:"max_tokens" validate:"gte=0"`
}

// LLMConfig selects and configures the generation provider.
// Temperature is nil until set; zero is a valid temperature.
type LLMConfig struct {
	Provider    string   `yaml:"provider" validate:"oneof=ollama openai"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	APIKeyEnv   string   `yaml:"api_key_env"`
	Temperature *float64 `yaml:"temperature,omitempty" validate:"required,gte=0,lte=2"`
	TimeoutSecs int      `yaml:"timeout_secs" validate:"gte=0"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	K int `yaml:"k" validate:"min=1"`
}

// StorageConfig holds the persisted index location.
type StorageConfig struct {
	PersistDirectory string `yaml:"persist_directory"`
}

// VectorConfig selects the vector backend.
type VectorConfig struct {
	Backend string       `yaml:"backend" validate:"oneof=memory qdrant"`
	Qdrant  QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds connection details for a Qdrant server.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port" validate:"gte=0,lte=65535"`
	Collection string `yaml:"collection"`
	APIKeyEnv  string `yaml:"api_key_env"`
	UseTLS     bool   `yaml:"use_tls"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"gte=0,lte=65535"`
}

// Load reads and parses the config file at path, applies defaults, resolves relative
// paths against the config file's directory, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.DataPath = expandPath(cfg.DataPath, configDir)
	cfg.Storage.PersistDirectory = expandPath(cfg.Storage.PersistDirectory, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists; otherwise it returns the defaults
// (relative paths stay relative to the working directory).
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := &Config{}
		ApplyDefaults(cfg)
		return cfg, nil
	}
	return Load(path)
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

var validate = newValidator()

// newValidator reports fields by their YAML names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate reports settings that would make the pipeline misbehave.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		msgs[i] = describe(fe)
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", field, fe.Param(), fe.Value())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be at most %s, got %v", field, fe.Param(), fe.Value())
	case "ltfield":
		return fmt.Sprintf("%s must be less than %s, got %v", field, "chunk_size", fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// expandPath converts a relative path to one rooted at configDir. "~/" expands to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}

// Summary is the subset of configuration reported by status output.
type Summary struct {
	DataPath          string `json:"data_path"`
	PersistDirectory  string `json:"persist_directory"`
	VectorBackend     string `json:"vector_backend"`
	EmbeddingProvider string `json:"embedding_provider"`
	EmbeddingModel    string `json:"embedding_model"`
	Dimensions        int    `json:"embedding_dimensions"`
	LLMProvider       string `json:"llm_provider"`
	LLMModel          string `json:"llm_model"`
	ChunkSize         int    `json:"chunk_size"`
	ChunkOverlap      int    `json:"chunk_overlap"`
	K                 int    `json:"retrieval_k"`
}

// Summary returns the reportable settings of c. Secrets are never included.
func (c *Config) Summary() Summary {
	return Summary{
		DataPath:          c.DataPath,
		PersistDirectory:  c.Storage.PersistDirectory,
		VectorBackend:     c.Vector.Backend,
		EmbeddingProvider: c.Embedding.Provider,
		EmbeddingModel:    c.Embedding.Model,
		Dimensions:        c.Embedding.Dimensions,
		LLMProvider:       c.LLM.Provider,
		LLMModel:          c.LLM.Model,
		ChunkSize:         c.Chunking.ChunkSize,
		ChunkOverlap:      c.Chunking.Overlap(),
		K:                 c.Retrieval.K,
	}
}

// Overlap returns the configured overlap, or 0 when it has not been set.
func (c ChunkingConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return 0
	}
	return *c.ChunkOverlap
}

// Temp returns the configured temperature, or 0 when it has not been set.
func (c LLMConfig) Temp() float64 {
	if c.Temperature == nil {
		return 0
	}
	return *c.Temperature
}
