package llm

import (
	"context"
	"fmt"

	"github.com/viniciusmartins/jurisrag/internal/config"
)

// Generation profile for legal prose: low temperature, bounded output.
const (
	generationTemperature = 0.1
	generationMaxTokens   = 2048
)

// #region interfaces
// Generator produces text from a rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// #endregion interfaces

// #region provider-selection
// NewFromConfig builds the generator and embedder for the configured
// provider. Credential checks already happened at config load time, so a
// failure here means the config was constructed without Validate.
func NewFromConfig(cfg config.Config) (Generator, Embedder, error) {
	switch cfg.LLMProvider {
	case "ollama":
		client := NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel, cfg.EmbeddingModel)
		return client, client, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("provider openai: %w", config.ErrMissingCredential)
		}
		client := NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.EmbeddingModel)
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unsupported llm provider: %q", cfg.LLMProvider)
	}
}

// #endregion provider-selection
