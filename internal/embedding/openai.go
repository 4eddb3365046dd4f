package embedding

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"articleqa/internal/rag/interfaces"
)

// OpenAIModel is a client for the OpenAI embedding API.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates an OpenAIModel client for the named embedding model.
func NewOpenAIModel(model, apiKey string) (*OpenAIModel, error) {
	config := openai.DefaultConfig(apiKey)
	return &OpenAIModel{client: openai.NewClientWithConfig(config), model: model}, nil
}

// Name returns the model identity recorded alongside persisted indexes.
func (m *OpenAIModel) Name() string {
	return "openai/" + m.model
}

// Embed generates the embedding vector for a single text.
func (m *OpenAIModel) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embedding vectors for a batch of texts, preserving
// input order.
func (m *OpenAIModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(m.model),
	}

	resp, err := m.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}
	return embeddings, nil
}

// compile-time check to ensure OpenAIModel implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*OpenAIModel)(nil)
