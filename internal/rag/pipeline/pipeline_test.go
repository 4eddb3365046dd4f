package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"articleqa/internal/rag/errs"
	"articleqa/internal/rag/retriever"
	"articleqa/internal/rag/schema"
	"articleqa/internal/rag/session"
	"articleqa/pkg/logger"
)

// scriptedLLM replays canned replies and records every prompt it receives.
type scriptedLLM struct {
	replies []string
	errs    []error
	prompts []string
}

func (l *scriptedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	l.prompts = append(l.prompts, prompt)
	call := len(l.prompts) - 1
	if call < len(l.errs) && l.errs[call] != nil {
		return "", l.errs[call]
	}
	if call < len(l.replies) {
		return l.replies[call], nil
	}
	return "", errors.New("no scripted reply left")
}

type constEmbedder struct{}

func (constEmbedder) Name() string { return "const/v1" }
func (constEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}
func (constEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type fixedIndex struct {
	results []schema.ScoredPassage
}

func (f *fixedIndex) Query(ctx context.Context, vector []float32, k int) ([]schema.ScoredPassage, error) {
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}

func (f *fixedIndex) Len() int { return len(f.results) }

func newQAPipeline(t *testing.T, llm *scriptedLLM) *QAPipeline {
	t.Helper()
	log := logger.New("test")
	r, err := retriever.New(constEmbedder{}, 4)
	require.NoError(t, err)
	return NewQAPipeline(NewCondensePipeline(llm, log), r, llm, log)
}

func passagesAbout(texts ...string) []schema.ScoredPassage {
	scored := make([]schema.ScoredPassage, len(texts))
	for i, text := range texts {
		scored[i] = schema.ScoredPassage{
			Passage: schema.Passage{ID: text, DocumentID: "paper.pdf", SequenceIndex: i, Text: text},
			Score:   1 - float32(i)/10,
		}
	}
	return scored
}

func TestCondense_EmptyHistorySkipsGeneration(t *testing.T) {
	llm := &scriptedLLM{}
	p := NewCondensePipeline(llm, logger.New("test"))

	got := p.Run(context.Background(), "What was the sample size?", session.NewHistory())

	assert.Equal(t, "What was the sample size?", got)
	assert.Empty(t, llm.prompts, "no generation call expected for the first question")
}

func TestCondense_RewritesFollowUpWithTranscript(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"How was the study cohort of 312 patients selected?"}}
	p := NewCondensePipeline(llm, logger.New("test"))

	history := session.NewHistory()
	history.Append("What was the sample size?", "The study included 312 patients.")

	got := p.Run(context.Background(), "How were they selected?", history)

	assert.Equal(t, "How was the study cohort of 312 patients selected?", got)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Question: What was the sample size?")
	assert.Contains(t, llm.prompts[0], "Answer: The study included 312 patients.")
	assert.Contains(t, llm.prompts[0], "Follow up question: How were they selected?")
}

func TestCondense_FailureDegradesToRawQuestion(t *testing.T) {
	history := session.NewHistory()
	history.Append("q1", "a1")

	t.Run("generation error", func(t *testing.T) {
		llm := &scriptedLLM{errs: []error{errors.New("timeout")}}
		p := NewCondensePipeline(llm, logger.New("test"))
		assert.Equal(t, "And then?", p.Run(context.Background(), "And then?", history))
	})

	t.Run("empty rewrite", func(t *testing.T) {
		llm := &scriptedLLM{replies: []string{"  \n"}}
		p := NewCondensePipeline(llm, logger.New("test"))
		assert.Equal(t, "And then?", p.Run(context.Background(), "And then?", history))
	})
}

func TestAnswer_GroundsPromptInRankedPassages(t *testing.T) {
	llm := &scriptedLLM{replies: []string{" The study included 312 patients. \n"}}
	p := newQAPipeline(t, llm)
	idx := &fixedIndex{results: passagesAbout("first passage", "second passage")}
	history := session.NewHistory()

	result, err := p.Answer(context.Background(), idx, "What was the sample size?", history)
	require.NoError(t, err)

	assert.Equal(t, "The study included 312 patients.", result.Answer)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "first passage", result.Sources[0].Text)

	require.Len(t, llm.prompts, 1)
	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "Context 1:\nfirst passage")
	assert.Contains(t, prompt, "Context 2:\nsecond passage")
	assert.Contains(t, prompt, FallbackAnswer)
	assert.Contains(t, prompt, "Question: What was the sample size?")
	assert.Less(t, strings.Index(prompt, "first passage"), strings.Index(prompt, "second passage"))

	require.Equal(t, 1, history.Len())
	assert.Equal(t, "The study included 312 patients.", history.Turns()[0].Answer)
}

func TestAnswer_EmptyRetrievalFallsBackWithoutGeneration(t *testing.T) {
	llm := &scriptedLLM{}
	p := newQAPipeline(t, llm)
	history := session.NewHistory()

	result, err := p.Answer(context.Background(), &fixedIndex{}, "What is the airspeed of a swallow?", history)
	require.NoError(t, err)

	assert.Equal(t, FallbackAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Empty(t, llm.prompts, "the generator must not be called when nothing was retrieved")

	require.Equal(t, 1, history.Len())
	assert.Equal(t, FallbackAnswer, history.Turns()[0].Answer)
}

func TestAnswer_ProviderFailureLeavesHistoryUntouched(t *testing.T) {
	idx := &fixedIndex{results: passagesAbout("passage")}
	history := session.NewHistory()

	// q1 succeeds.
	llm1 := &scriptedLLM{replies: []string{"answer one"}}
	p1 := newQAPipeline(t, llm1)
	_, err := p1.Answer(context.Background(), idx, "q1", history)
	require.NoError(t, err)

	// q2 fails at generation; the condense call succeeds first.
	llm2 := &scriptedLLM{
		replies: []string{"standalone q2", ""},
		errs:    []error{nil, errors.New("503 from provider")},
	}
	p2 := newQAPipeline(t, llm2)
	_, err = p2.Answer(context.Background(), idx, "q2", history)
	require.Error(t, err)
	assert.True(t, errs.IsProvider(err))

	// q3 condenses against a history that holds only q1's turn.
	llm3 := &scriptedLLM{replies: []string{"standalone q3", "answer three"}}
	p3 := newQAPipeline(t, llm3)
	result, err := p3.Answer(context.Background(), idx, "q3", history)
	require.NoError(t, err)
	assert.Equal(t, "answer three", result.Answer)

	condensePrompt := llm3.prompts[0]
	assert.Contains(t, condensePrompt, "Question: q1")
	assert.NotContains(t, condensePrompt, "q2")

	require.Equal(t, 2, history.Len())
	assert.Equal(t, "q1", history.Turns()[0].Question)
	assert.Equal(t, "q3", history.Turns()[1].Question)
}
