package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"articleqa/internal/rag/errs"
	"articleqa/internal/rag/schema"
)

// fixedEmbedder returns pre-assigned vectors per text, a deterministic
// stand-in for a live embedding model.
type fixedEmbedder struct {
	name    string
	vectors map[string][]float32
	calls   int
}

func (e *fixedEmbedder) Name() string { return e.name }

func (e *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func (e *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// failingEmbedder always reports the provider as unreachable.
type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing/v1" }
func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("connection refused")
}
func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("connection refused")
}

func testPassages(texts ...string) []schema.Passage {
	passages := make([]schema.Passage, len(texts))
	for i, text := range texts {
		passages[i] = schema.Passage{
			ID:            fmt.Sprintf("p%d", i),
			DocumentID:    "paper.pdf",
			SequenceIndex: i,
			Text:          text,
		}
	}
	return passages
}

func newTestIndex(t *testing.T) (*Index, *fixedEmbedder) {
	t.Helper()
	embedder := &fixedEmbedder{
		name: "test/v1",
		vectors: map[string][]float32{
			"alpha": {1, 0, 0},
			"beta":  {0, 1, 0},
			"gamma": {0.9, 0.1, 0},
		},
	}
	doc := &schema.Document{ID: "paper.pdf", Text: "alpha beta gamma"}
	ix, err := Build(context.Background(), doc, testPassages("alpha", "beta", "gamma"), 100, 10, embedder)
	require.NoError(t, err)
	return ix, embedder
}

func TestQuery_RanksByDescendingSimilarity(t *testing.T) {
	ix, _ := newTestIndex(t)

	results, err := ix.Query(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "alpha", results[0].Passage.Text)
	assert.Equal(t, "gamma", results[1].Passage.Text)
	assert.Equal(t, "beta", results[2].Passage.Text)

	for i := 0; i < len(results)-1; i++ {
		assert.GreaterOrEqual(t, results[i].Score, results[i+1].Score)
	}
}

func TestQuery_TiesBrokenBySequenceIndex(t *testing.T) {
	embedder := &fixedEmbedder{
		name: "test/v1",
		vectors: map[string][]float32{
			"one":  {0, 1, 0},
			"two":  {1, 0, 0},
			"tied": {1, 0, 0},
		},
	}
	doc := &schema.Document{ID: "d", Text: "one two tied"}
	ix, err := Build(context.Background(), doc, testPassages("one", "two", "tied"), 100, 10, embedder)
	require.NoError(t, err)

	results, err := ix.Query(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// "two" (sequence 1) and "tied" (sequence 2) score identically; the
	// smaller sequence index must come first.
	assert.Equal(t, "two", results[0].Passage.Text)
	assert.Equal(t, "tied", results[1].Passage.Text)
	assert.Equal(t, results[0].Score, results[1].Score)
}

func TestQuery_KLargerThanIndexReturnsAll(t *testing.T) {
	ix, _ := newTestIndex(t)

	results, err := ix.Query(context.Background(), []float32{0, 1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestQuery_RejectsNonPositiveK(t *testing.T) {
	ix, _ := newTestIndex(t)

	for _, k := range []int{0, -1} {
		_, err := ix.Query(context.Background(), []float32{1, 0, 0}, k)
		require.Error(t, err)
		assert.True(t, errs.IsConfig(err))
	}
}

func TestBuild_EmbeddingFailureIsProviderError(t *testing.T) {
	doc := &schema.Document{ID: "d", Text: "alpha"}
	_, err := Build(context.Background(), doc, testPassages("alpha"), 100, 10, failingEmbedder{})
	require.Error(t, err)
	assert.True(t, errs.IsProvider(err))
}

func TestSaveLoad_RoundTripAnswersIdentically(t *testing.T) {
	ix, embedder := newTestIndex(t)
	dir := filepath.Join(t.TempDir(), "idx")

	require.NoError(t, ix.Save(dir))
	assert.True(t, Exists(dir))

	loaded, err := Load(dir, embedder)
	require.NoError(t, err)
	assert.Equal(t, ix.DocumentID(), loaded.DocumentID())
	assert.Equal(t, ix.Len(), loaded.Len())

	queries := [][]float32{{1, 0, 0}, {0, 1, 0}, {0.5, 0.5, 0}}
	for _, v := range queries {
		want, err := ix.Query(context.Background(), v, 3)
		require.NoError(t, err)
		got, err := loaded.Query(context.Background(), v, 3)
		require.NoError(t, err)

		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].Passage.SequenceIndex, got[i].Passage.SequenceIndex)
		}
	}
}

func TestLoad_FailsFastOnModelMismatch(t *testing.T) {
	ix, _ := newTestIndex(t)
	dir := filepath.Join(t.TempDir(), "idx")
	require.NoError(t, ix.Save(dir))

	other := &fixedEmbedder{name: "other/v2"}
	_, err := Load(dir, other)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrModelMismatch)
}

func TestLoad_CorruptIndexIsDetected(t *testing.T) {
	ix, embedder := newTestIndex(t)

	t.Run("unparseable vectors", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "idx")
		require.NoError(t, ix.Save(dir))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors.json"), []byte("{not json"), 0o644))

		_, err := Load(dir, embedder)
		assert.ErrorIs(t, err, errs.ErrCorruptIndex)
	})

	t.Run("passage and vector counts disagree", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "idx")
		require.NoError(t, ix.Save(dir))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors.json"), []byte("[[1,0,0]]"), 0o644))

		_, err := Load(dir, embedder)
		assert.ErrorIs(t, err, errs.ErrCorruptIndex)
	})

	t.Run("missing manifest", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "idx")
		require.NoError(t, ix.Save(dir))
		require.NoError(t, os.Remove(filepath.Join(dir, "manifest.json")))

		_, err := Load(dir, embedder)
		assert.ErrorIs(t, err, errs.ErrCorruptIndex)
	})
}

func TestCacheKey_ChangesWithEveryParameter(t *testing.T) {
	base := CacheKey("text", 100, 10, "model/v1")

	assert.NotEqual(t, base, CacheKey("other text", 100, 10, "model/v1"))
	assert.NotEqual(t, base, CacheKey("text", 200, 10, "model/v1"))
	assert.NotEqual(t, base, CacheKey("text", 100, 20, "model/v1"))
	assert.NotEqual(t, base, CacheKey("text", 100, 10, "model/v2"))
	assert.Equal(t, base, CacheKey("text", 100, 10, "model/v1"))
}
