package interfaces

import (
	"context"

	"articleqa/internal/rag/schema"
)

// Loader is the interface for loading data from a source file and converting
// it into a list of Document objects (one per page for paged formats).
type Loader interface {
	Load(ctx context.Context, path string) ([]*schema.Document, error)
}

// Splitter is the interface for cutting a list of Documents into ordered
// Passages with document-wide sequence indexes.
type Splitter interface {
	Split(ctx context.Context, docs []*schema.Document) ([]schema.Passage, error)
}

// EmbeddingModel is the interface for a text embedding model.
//
// Name identifies the model and version; two vectors are comparable only when
// produced by the same named model, and the name is recorded alongside every
// persisted index so mismatches are detectable at load time.
type EmbeddingModel interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM is the interface for a language model that turns one fully assembled
// prompt into free text.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorIndex is the query surface of a built passage index. Implementations
// must be safe for concurrent readers and must never be mutated in place.
type VectorIndex interface {
	// Query returns at most k passages ranked by descending similarity to the
	// given vector, ties broken by ascending sequence index.
	Query(ctx context.Context, vector []float32, k int) ([]schema.ScoredPassage, error)

	// Len reports the number of indexed passages.
	Len() int
}
