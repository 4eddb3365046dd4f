package llm

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"articleqa/internal/rag/interfaces"
)

// OpenAI is a client for the OpenAI chat completion API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI client for the named chat model.
func NewOpenAI(model, apiKey string) (*OpenAI, error) {
	config := openai.DefaultConfig(apiKey)
	return &OpenAI{client: openai.NewClientWithConfig(config), model: model}, nil
}

// Generate sends the prompt as a single user message and returns the reply.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// compile-time check to ensure OpenAI implements the LLM interface
var _ interfaces.LLM = (*OpenAI)(nil)
