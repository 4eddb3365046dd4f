package index

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"articleqa/internal/rag/errs"
	"articleqa/internal/rag/interfaces"
	"articleqa/internal/rag/schema"
)

const (
	manifestFile = "manifest.json"
	passagesFile = "passages.json"
	vectorsFile  = "vectors.json"
)

// manifest records what a persisted index was built from, so that a stale or
// foreign index is detected at load time instead of silently served.
type manifest struct {
	DocumentID     string `json:"document_id"`
	EmbeddingModel string `json:"embedding_model"`
	ChunkSize      int    `json:"chunk_size"`
	Overlap        int    `json:"overlap"`
	ContentKey     string `json:"content_key"`
	PassageCount   int    `json:"passage_count"`
	Dimension      int    `json:"dimension"`
}

// CacheKey derives the content-addressed key of an index from the document
// text, the chunking parameters and the embedding model identity. Any change
// to one of them yields a different key, so a stale index is never reused
// after a parameter change.
func CacheKey(documentText string, chunkSize, overlap int, model string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%d\x00%s", model, chunkSize, overlap, documentText)
	return hex.EncodeToString(h.Sum(nil))
}

// Exists reports whether a persisted index is present at dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, manifestFile))
	return err == nil
}

// Save persists the index under dir: a manifest, the passage table and the
// vector table. The data is written to a temporary directory first and then
// renamed into place, so a concurrent reader never observes a partially
// written index.
func (ix *Index) Save(dir string) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.MkdirTemp(parent, ".index-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary index directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	dim := 0
	if len(ix.vectors) > 0 {
		dim = len(ix.vectors[0])
	}
	m := manifest{
		DocumentID:     ix.documentID,
		EmbeddingModel: ix.model,
		ChunkSize:      ix.chunkSize,
		Overlap:        ix.overlap,
		ContentKey:     ix.contentKey,
		PassageCount:   len(ix.passages),
		Dimension:      dim,
	}

	if err := writeJSON(filepath.Join(tmp, manifestFile), m); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(tmp, passagesFile), ix.passages); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(tmp, vectorsFile), ix.vectors); err != nil {
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to replace existing index: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return fmt.Errorf("failed to move index into place: %w", err)
	}
	return nil
}

// Load reads a persisted index from dir. It fails fast with ErrModelMismatch
// when the stored embedding model identity differs from the supplied
// embedder, and with ErrCorruptIndex when the stored tables cannot be
// deserialized or disagree with the manifest.
func Load(dir string, embedder interfaces.EmbeddingModel) (*Index, error) {
	var m manifest
	if err := readJSON(filepath.Join(dir, manifestFile), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCorruptIndex, err)
	}

	if m.EmbeddingModel != embedder.Name() {
		return nil, fmt.Errorf("%w: index built with %q, embedder is %q",
			errs.ErrModelMismatch, m.EmbeddingModel, embedder.Name())
	}

	var passages []schema.Passage
	if err := readJSON(filepath.Join(dir, passagesFile), &passages); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCorruptIndex, err)
	}
	var vectors [][]float32
	if err := readJSON(filepath.Join(dir, vectorsFile), &vectors); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCorruptIndex, err)
	}

	if len(passages) != len(vectors) || len(passages) != m.PassageCount {
		return nil, fmt.Errorf("%w: manifest declares %d passages, found %d passages and %d vectors",
			errs.ErrCorruptIndex, m.PassageCount, len(passages), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != m.Dimension {
			return nil, fmt.Errorf("%w: vector dimension %d does not match manifest dimension %d",
				errs.ErrCorruptIndex, len(v), m.Dimension)
		}
	}

	return &Index{
		documentID: m.DocumentID,
		model:      m.EmbeddingModel,
		chunkSize:  m.ChunkSize,
		overlap:    m.Overlap,
		contentKey: m.ContentKey,
		passages:   passages,
		vectors:    vectors,
	}, nil
}

// ContentKey returns the content-addressed key the index was built under.
func (ix *Index) ContentKey() string { return ix.contentKey }

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
