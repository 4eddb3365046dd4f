package retriever

import (
	"context"

	"articleqa/internal/rag/errs"
	"articleqa/internal/rag/interfaces"
	"articleqa/internal/rag/schema"
)

// DefaultTopK is the number of passages retrieved when no explicit k is
// configured.
const DefaultTopK = 4

// Retriever wraps a vector index with the query-time contract: text in,
// ranked passages out. It never mutates the index.
type Retriever struct {
	embedder interfaces.EmbeddingModel
	topK     int
}

// New validates k and creates a Retriever. Pass 0 to use DefaultTopK.
func New(embedder interfaces.EmbeddingModel, topK int) (*Retriever, error) {
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 0 {
		return nil, errs.Configf("top-k must not be negative, got %d", topK)
	}
	return &Retriever{embedder: embedder, topK: topK}, nil
}

// Retrieve embeds the query text, queries the index and returns the ranked
// passages with their similarity scores discarded. If the index holds fewer
// than k passages, all of them are returned.
func (r *Retriever) Retrieve(ctx context.Context, idx interfaces.VectorIndex, query string) ([]schema.Passage, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errs.Provider("embed query", err)
	}

	scored, err := idx.Query(ctx, vector, r.topK)
	if err != nil {
		return nil, err
	}

	passages := make([]schema.Passage, len(scored))
	for i, s := range scored {
		passages[i] = s.Passage
	}
	return passages, nil
}
