// Package index stores the passages of one document together with their
// embedding vectors and answers nearest-neighbour queries by cosine
// similarity. An index is read-only after Build or Load and may be shared
// across concurrent sessions querying the same document.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"articleqa/internal/rag/errs"
	"articleqa/internal/rag/interfaces"
	"articleqa/internal/rag/schema"
)

// Index holds the passages of a single document and their vectors, keyed by
// the document identifier and the embedding model that produced the vectors.
type Index struct {
	documentID string
	model      string
	chunkSize  int
	overlap    int
	contentKey string
	passages   []schema.Passage
	vectors    [][]float32
}

// Build embeds the passages in order and assembles an Index for the document.
// An embedding failure is reported as a recoverable provider error.
func Build(ctx context.Context, doc *schema.Document, passages []schema.Passage, chunkSize, overlap int, embedder interfaces.EmbeddingModel) (*Index, error) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		vectors, err = embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, errs.Provider("embed passages", err)
		}
		if len(vectors) != len(passages) {
			return nil, errs.Provider("embed passages",
				fmt.Errorf("expected %d vectors, got %d", len(passages), len(vectors)))
		}
	}

	return &Index{
		documentID: doc.ID,
		model:      embedder.Name(),
		chunkSize:  chunkSize,
		overlap:    overlap,
		contentKey: CacheKey(doc.Text, chunkSize, overlap, embedder.Name()),
		passages:   passages,
		vectors:    vectors,
	}, nil
}

// DocumentID returns the identifier of the indexed document.
func (ix *Index) DocumentID() string { return ix.documentID }

// Model returns the identity of the embedding model the vectors came from.
func (ix *Index) Model() string { return ix.model }

// Len reports the number of indexed passages.
func (ix *Index) Len() int { return len(ix.passages) }

// Query returns at most k passages ranked by descending cosine similarity to
// the given vector. Exact ties are broken by ascending sequence index so that
// results are reproducible. k must be positive; if the index holds fewer than
// k passages, all of them are returned, fully ranked.
func (ix *Index) Query(ctx context.Context, vector []float32, k int) ([]schema.ScoredPassage, error) {
	if k <= 0 {
		return nil, errs.Configf("top-k must be positive, got %d", k)
	}

	results := make([]schema.ScoredPassage, len(ix.passages))
	for i := range ix.passages {
		results[i] = schema.ScoredPassage{
			Passage: ix.passages[i],
			Score:   cosine(ix.vectors[i], vector),
		}
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Passage.SequenceIndex < results[b].Passage.SequenceIndex
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// cosine computes the cosine similarity of two vectors, 0 when either has a
// zero norm or the dimensions disagree.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// compile-time check to ensure Index implements the VectorIndex interface
var _ interfaces.VectorIndex = (*Index)(nil)
