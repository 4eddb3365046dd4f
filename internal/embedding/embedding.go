// Package embedding provides clients for the supported text embedding
// providers. Every client implements interfaces.EmbeddingModel, including the
// Name identity used to key persisted indexes.
package embedding

import (
	"fmt"

	"articleqa/internal/rag/interfaces"
)

// New creates an embedding model client for the given provider.
// baseURL is only used by providers that serve from a configurable address.
func New(provider, model, apiKey, baseURL string) (interfaces.EmbeddingModel, error) {
	switch provider {
	case "gemini":
		return NewGoogleModel(model, apiKey)
	case "openai":
		return NewOpenAIModel(model, apiKey)
	case "ollama":
		return NewOllamaModel(model, baseURL)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}
