package embedding

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"articleqa/internal/rag/interfaces"
)

// GoogleModel is a client for the Google GenAI embedding API.
type GoogleModel struct {
	model     *genai.EmbeddingModel
	modelName string
}

// NewGoogleModel creates a GoogleModel client for the named embedding model.
func NewGoogleModel(modelName, apiKey string) (*GoogleModel, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GoogleModel{
		model:     client.EmbeddingModel(modelName),
		modelName: modelName,
	}, nil
}

// Name returns the model identity recorded alongside persisted indexes.
func (m *GoogleModel) Name() string {
	return "google/" + m.modelName
}

// Embed generates the embedding vector for a single text.
func (m *GoogleModel) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := m.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	return res.Embedding.Values, nil
}

// EmbedBatch generates embedding vectors for a batch of texts, preserving
// input order.
func (m *GoogleModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	batch := m.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	res, err := m.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, 0, len(res.Embeddings))
	for _, emb := range res.Embeddings {
		embeddings = append(embeddings, emb.Values)
	}
	return embeddings, nil
}

// compile-time check to ensure GoogleModel implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*GoogleModel)(nil)
