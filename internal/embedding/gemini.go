package embedding

import (
	"context"

	"groundswell/internal/llm"
)

// GeminiEmbedder implements Embedder on top of the Gemini LLM client.
type GeminiEmbedder struct {
	client *llm.Client
}

// NewGeminiEmbedder wraps an existing Gemini client as an embedding provider.
func NewGeminiEmbedder(client *llm.Client) *GeminiEmbedder {
	return &GeminiEmbedder{client: client}
}

// Embed generates a vector for the given text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	return e.client.GenerateEmbedding(ctx, text)
}

// Dimension returns the embedding vector dimension.
func (e *GeminiEmbedder) Dimension() int {
	return int(llm.DefaultEmbeddingDimensions)
}
