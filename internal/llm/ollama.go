package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// #region ollama-client
// OllamaClient serves generation and embeddings from a local Ollama server.
type OllamaClient struct {
	client         *api.Client
	model          string
	embeddingModel string
}

// NewOllamaClient builds a client for the given host URL. A malformed host
// falls back to the default local address.
func NewOllamaClient(host, model, embeddingModel string) *OllamaClient {
	if host == "" {
		host = "http://localhost:11434"
	}
	base, err := url.Parse(host)
	if err != nil {
		base, _ = url.Parse("http://localhost:11434")
	}

	httpClient := &http.Client{Timeout: 5 * time.Minute}
	return &OllamaClient{
		client:         api.NewClient(base, httpClient),
		model:          model,
		embeddingModel: embeddingModel,
	}
}

// #endregion ollama-client

// #region generate
// Generate runs a non-streaming completion and returns the full text.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": generationTemperature,
			"num_predict": generationMaxTokens,
		},
	}

	var out strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return out.String(), nil
}

// #endregion generate

// #region embed
// Embed returns the embedding vector for text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  c.embeddingModel,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// #endregion embed
