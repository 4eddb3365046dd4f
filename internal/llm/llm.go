// Package llm provides clients for the supported language model providers.
// Every client implements interfaces.LLM: one fully assembled prompt in, free
// text out. No streaming is needed by the engine.
package llm

import (
	"fmt"

	"articleqa/internal/rag/interfaces"
)

// New creates a language model client for the given provider.
// baseURL is only used by providers that serve from a configurable address.
func New(provider, model, apiKey, baseURL string) (interfaces.LLM, error) {
	switch provider {
	case "gemini":
		return NewGemini(model, apiKey)
	case "openai":
		return NewOpenAI(model, apiKey)
	case "ollama":
		return NewOllama(model, baseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
