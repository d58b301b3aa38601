package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// #region openai-client
// OpenAIClient serves generation and embeddings through the OpenAI API.
type OpenAIClient struct {
	client         openai.Client
	model          string
	embeddingModel string
}

// NewOpenAIClient builds a client with the given API key and models.
func NewOpenAIClient(apiKey, model, embeddingModel string) *OpenAIClient {
	if embeddingModel == "" {
		embeddingModel = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	return &OpenAIClient{
		client:         openai.NewClient(option.WithAPIKey(apiKey)),
		model:          model,
		embeddingModel: embeddingModel,
	}
}

// #endregion openai-client

// #region generate
// Generate runs a chat completion with the configured legal-prose profile.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(generationTemperature),
		MaxTokens:   openai.Int(generationMaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// #endregion generate

// #region embed
// Embed returns the embedding vector for text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// #endregion embed
