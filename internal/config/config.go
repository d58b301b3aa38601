package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredential indicates the selected LLM provider has no usable credential.
var ErrMissingCredential = errors.New("missing provider credential")

// #region config-struct
// Config holds all process-wide settings, loaded once at startup.
type Config struct {
	// Vector index (Qdrant)
	QdrantAddr string `yaml:"qdrant_addr"`
	Collection string `yaml:"collection"`

	// LLM provider: "ollama" or "openai"
	LLMProvider  string `yaml:"llm_provider"`
	OllamaHost   string `yaml:"ollama_host"`
	OllamaModel  string `yaml:"ollama_model"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`

	// Embeddings
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`

	// Retrieval
	RetrievalTopK       int     `yaml:"retrieval_top_k"`
	ChunkSize           int     `yaml:"chunk_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// Evaluation
	EvaluationEnabled   bool   `yaml:"evaluation_enabled"`
	EvaluationBatchSize int    `yaml:"evaluation_batch_size"`
	HistoryDBPath       string `yaml:"history_db_path"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// #endregion config-struct

// #region defaults
// Default returns the baseline configuration before file and env overrides.
func Default() Config {
	return Config{
		QdrantAddr:          "localhost:6334",
		Collection:          "jurisrag_legal_docs",
		LLMProvider:         "ollama",
		OllamaHost:          "http://localhost:11434",
		OllamaModel:         "llama3",
		OpenAIModel:         "gpt-4-turbo-preview",
		EmbeddingModel:      "nomic-embed-text",
		EmbeddingDimension:  768,
		RetrievalTopK:       5,
		ChunkSize:           1000,
		ChunkOverlap:        200,
		SimilarityThreshold: 0.7,
		EvaluationEnabled:   true,
		EvaluationBatchSize: 10,
		HistoryDBPath:       "jurisrag_eval.db",
		LogLevel:            "info",
	}
}

// #endregion defaults

// #region load
// Load reads configuration from an optional YAML file, then applies
// JURISRAG_-prefixed environment overrides, then validates.
// An empty path skips the file step.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides fields from JURISRAG_* environment variables.
func applyEnv(cfg *Config) {
	setStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setStr("JURISRAG_QDRANT_ADDR", &cfg.QdrantAddr)
	setStr("JURISRAG_COLLECTION", &cfg.Collection)
	setStr("JURISRAG_LLM_PROVIDER", &cfg.LLMProvider)
	setStr("JURISRAG_OLLAMA_HOST", &cfg.OllamaHost)
	setStr("JURISRAG_OLLAMA_MODEL", &cfg.OllamaModel)
	setStr("JURISRAG_OPENAI_API_KEY", &cfg.OpenAIAPIKey)
	setStr("JURISRAG_OPENAI_MODEL", &cfg.OpenAIModel)
	setStr("JURISRAG_EMBEDDING_MODEL", &cfg.EmbeddingModel)
	setInt("JURISRAG_EMBEDDING_DIMENSION", &cfg.EmbeddingDimension)
	setInt("JURISRAG_RETRIEVAL_TOP_K", &cfg.RetrievalTopK)
	setInt("JURISRAG_CHUNK_SIZE", &cfg.ChunkSize)
	setInt("JURISRAG_CHUNK_OVERLAP", &cfg.ChunkOverlap)
	setFloat("JURISRAG_SIMILARITY_THRESHOLD", &cfg.SimilarityThreshold)
	setBool("JURISRAG_EVALUATION_ENABLED", &cfg.EvaluationEnabled)
	setInt("JURISRAG_EVALUATION_BATCH_SIZE", &cfg.EvaluationBatchSize)
	setStr("JURISRAG_HISTORY_DB", &cfg.HistoryDBPath)
	setStr("JURISRAG_LOG_LEVEL", &cfg.LogLevel)
}

// #endregion load

// #region validate
// Validate checks cross-field constraints and provider credentials.
// A missing credential for the selected provider is fatal at startup.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case "ollama":
		// Local provider, no credential required.
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("provider openai: %w", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("unsupported llm provider: %q", c.LLMProvider)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap)
	}
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("retrieval_top_k must be positive, got %d", c.RetrievalTopK)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0,1], got %f", c.SimilarityThreshold)
	}
	return nil
}

// #endregion validate
