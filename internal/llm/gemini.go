package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"articleqa/internal/rag/interfaces"
)

// Gemini is a client for the Gemini generation API.
type Gemini struct {
	model *genai.GenerativeModel
}

// NewGemini creates a Gemini client for the named generative model.
func NewGemini(model, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &Gemini{model: client.GenerativeModel(model)}, nil
}

// Generate sends the prompt to Gemini and returns the plain text of the first
// candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini failed to generate content: %w", err)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				return string(text), nil
			}
		}
	}

	return "", fmt.Errorf("gemini response was empty or in an unexpected format")
}

// compile-time check to ensure Gemini implements the LLM interface
var _ interfaces.LLM = (*Gemini)(nil)
