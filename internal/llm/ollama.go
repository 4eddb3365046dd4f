package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	olla "github.com/ollama/ollama/api"

	"articleqa/internal/rag/interfaces"
)

// Ollama is a client for models served by a local Ollama instance.
type Ollama struct {
	client *olla.Client
	model  string
}

// NewOllama creates an Ollama client. baseURL defaults to the local Ollama
// address when empty.
func NewOllama(model, baseURL string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	hc := &http.Client{
		Timeout: 120 * time.Second,
	}

	return &Ollama{client: olla.NewClient(parsedURL, hc), model: model}, nil
}

// Generate sends the prompt to Ollama and returns the generated text.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	var result string

	err := o.client.Generate(ctx, &olla.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &stream,
	}, func(resp olla.GenerateResponse) error {
		result = resp.Response
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content with ollama: %w", err)
	}

	return result, nil
}

// compile-time check to ensure Ollama implements the LLM interface
var _ interfaces.LLM = (*Ollama)(nil)
