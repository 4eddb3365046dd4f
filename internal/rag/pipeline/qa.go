package pipeline

import (
	"context"
	"fmt"
	"strings"

	"articleqa/internal/rag/errs"
	"articleqa/internal/rag/interfaces"
	"articleqa/internal/rag/retriever"
	"articleqa/internal/rag/schema"
	"articleqa/internal/rag/session"
	"articleqa/pkg/logger"
)

// FallbackAnswer is the canonical response when the document does not support
// an answer. The generation prompt instructs the model to produce it
// verbatim, and the empty-retrieval path returns the same constant.
const FallbackAnswer = "I cannot find the answer to this question in the provided document."

// QAPipeline answers questions about one document, grounded strictly in
// retrieved passages. Per question it condenses, retrieves, assembles the
// prompt, generates and records the turn; questions of one session must be
// processed in order because condensation depends on the history of all
// prior turns.
type QAPipeline struct {
	condenser *CondensePipeline
	retriever *retriever.Retriever
	llm       interfaces.LLM
	log       *logger.Logger
}

// NewQAPipeline creates a new QAPipeline.
func NewQAPipeline(condenser *CondensePipeline, retriever *retriever.Retriever, llm interfaces.LLM, log *logger.Logger) *QAPipeline {
	return &QAPipeline{
		condenser: condenser,
		retriever: retriever,
		llm:       llm,
		log:       log,
	}
}

// Answer runs one question through the pipeline and appends the turn to the
// history on success. A provider failure leaves the history untouched and is
// returned as a recoverable error; the caller decides whether to retry or
// skip. The fallback answer is a successful result, not an error.
func (p *QAPipeline) Answer(ctx context.Context, idx interfaces.VectorIndex, question string, history *session.History) (*schema.QAResult, error) {
	standalone := p.condenser.Run(ctx, question, history)
	if standalone != question {
		p.log.Debug(fmt.Sprintf("Condensed %q into %q", question, standalone))
	}

	passages, err := p.retriever.Retrieve(ctx, idx, standalone)
	if err != nil {
		return nil, err
	}

	// Nothing to ground on: skip generation entirely and answer with the
	// canonical fallback.
	if len(passages) == 0 {
		p.log.Info("Retrieval returned no passages, answering with the fallback.")
		history.Append(question, FallbackAnswer)
		return &schema.QAResult{Answer: FallbackAnswer}, nil
	}

	answer, err := p.llm.Generate(ctx, p.buildPrompt(standalone, passages))
	if err != nil {
		return nil, errs.Provider("generate answer", err)
	}
	answer = strings.TrimSpace(answer)

	history.Append(question, answer)
	return &schema.QAResult{Answer: answer, Sources: passages}, nil
}

// buildPrompt assembles the deterministic answer prompt from the retrieved
// passages, in ranked order, and the standalone question. The instruction
// confines the model to the supplied context and demands the fallback
// sentence verbatim when the context does not contain the answer.
func (p *QAPipeline) buildPrompt(question string, passages []schema.Passage) string {
	var sb strings.Builder

	sb.WriteString("Use the following pieces of context from a scientific article to answer the question.\n")
	sb.WriteString("Answer only with information stated in the context. Do not restate the question, comment on the context, or make suggestions.\n")
	sb.WriteString(fmt.Sprintf("If the context does not contain the answer, reply exactly: %s\n\nContext:\n", FallbackAnswer))

	for i, passage := range passages {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("Context %d:\n%s\n", i+1, passage.Text))
	}

	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("Question: %s", question))

	return sb.String()
}
