package pipeline

import (
	"context"
	"fmt"
	"strings"

	"articleqa/internal/rag/interfaces"
	"articleqa/internal/rag/session"
	"articleqa/pkg/logger"
)

// CondensePipeline rewrites a follow-up question into a standalone question
// using the conversation so far, so that retrieval does not depend on
// pronouns or implicit referents from earlier turns.
type CondensePipeline struct {
	llm interfaces.LLM
	log *logger.Logger
}

// NewCondensePipeline creates a new CondensePipeline.
func NewCondensePipeline(llm interfaces.LLM, log *logger.Logger) *CondensePipeline {
	return &CondensePipeline{llm: llm, log: log}
}

// Run produces the standalone form of the question. With an empty history the
// question is already standalone and is returned unchanged without a
// generation call. A failed generation degrades to the raw question instead
// of aborting the whole query.
func (p *CondensePipeline) Run(ctx context.Context, question string, history *session.History) string {
	if history.Empty() {
		return question
	}

	rewritten, err := p.llm.Generate(ctx, p.buildPrompt(question, history))
	if err != nil {
		p.log.Warn(fmt.Sprintf("Question condensation failed: %v. Using the raw question.", err))
		return question
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		p.log.Warn("Question condensation returned empty text. Using the raw question.")
		return question
	}
	return rewritten
}

// buildPrompt assembles the rewrite prompt from the conversation transcript
// and the follow-up question.
func (p *CondensePipeline) buildPrompt(question string, history *session.History) string {
	var sb strings.Builder

	sb.WriteString("Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question that can be understood without the conversation.\n")
	sb.WriteString("Reply with the standalone question only.\n\nConversation:\n")

	for _, turn := range history.Turns() {
		sb.WriteString(fmt.Sprintf("Question: %s\nAnswer: %s\n", turn.Question, turn.Answer))
	}

	sb.WriteString(fmt.Sprintf("\nFollow up question: %s\nStandalone question:", question))

	return sb.String()
}
