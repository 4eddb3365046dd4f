// Package service assembles the retrieval engine: loaders, splitter, passage
// index, retriever and the conversational QA pipeline.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"articleqa/internal/config"
	"articleqa/internal/database/milvus"
	"articleqa/internal/rag/index"
	"articleqa/internal/rag/interfaces"
	"articleqa/internal/rag/loaders"
	"articleqa/internal/rag/pipeline"
	"articleqa/internal/rag/retriever"
	"articleqa/internal/rag/schema"
	"articleqa/internal/rag/session"
	"articleqa/internal/rag/splitters"
	"articleqa/internal/rag/storages/vectorstore"
	"articleqa/pkg/logger"
)

// Engine answers questions about one document at a time, grounded in its
// indexed passages. It is safe to share across sessions: all state after
// BuildIndex is read-only.
type Engine struct {
	log      *logger.Logger
	cfg      *config.AppConfig
	embedder interfaces.EmbeddingModel
	splitter *splitters.CharacterSplitter
	qa       *pipeline.QAPipeline
	milvus   *milvus.MilvusClient
}

// NewEngine validates the engine parameters and wires the pipelines.
// milvusClient may be nil; the file-backed index is used then.
func NewEngine(cfg *config.AppConfig, embedder interfaces.EmbeddingModel, llm interfaces.LLM, milvusClient *milvus.MilvusClient, log *logger.Logger) (*Engine, error) {
	splitter, err := splitters.NewCharacterSplitter(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}

	ret, err := retriever.New(embedder, cfg.Retrieval.TopK)
	if err != nil {
		return nil, err
	}

	condenser := pipeline.NewCondensePipeline(llm, log)
	qa := pipeline.NewQAPipeline(condenser, ret, llm, log)

	return &Engine{
		log:      log,
		cfg:      cfg,
		embedder: embedder,
		splitter: splitter,
		qa:       qa,
		milvus:   milvusClient,
	}, nil
}

// NewSession starts an empty conversation history. One History belongs to
// exactly one document flow and must not be shared.
func (e *Engine) NewSession() *session.History {
	return session.NewHistory()
}

// BuildIndex loads the document at path, splits it into passages and returns
// a queryable index. A persisted index built from the same document text,
// chunking parameters and embedding model is reused instead of re-embedding;
// a corrupt one is rebuilt.
func (e *Engine) BuildIndex(ctx context.Context, path string) (interfaces.VectorIndex, *schema.Document, error) {
	pages, err := e.load(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if len(pages) == 0 {
		return nil, nil, fmt.Errorf("no text extracted from %s", path)
	}

	texts := make([]string, len(pages))
	for i, page := range pages {
		texts[i] = page.Text
	}
	doc := &schema.Document{
		ID:       pages[0].ID,
		Text:     strings.Join(texts, "\n"),
		Metadata: pages[0].Metadata,
	}
	log := e.log.WithDocument(doc.ID)

	passages, err := e.splitter.Split(ctx, pages)
	if err != nil {
		return nil, nil, err
	}
	log.Info(fmt.Sprintf("Split %s into %d passages", doc.ID, len(passages)))

	if e.milvus != nil {
		idx, err := e.buildMilvusIndex(ctx, doc, passages, log)
		if err != nil {
			return nil, nil, err
		}
		return idx, doc, nil
	}

	key := index.CacheKey(doc.Text, e.cfg.Chunking.ChunkSize, e.cfg.Chunking.Overlap, e.embedder.Name())
	dir := filepath.Join(e.cfg.Index.CacheDir, key)

	if index.Exists(dir) {
		idx, err := index.Load(dir, e.embedder)
		if err == nil {
			log.Info(fmt.Sprintf("Reusing persisted index for %s", doc.ID))
			return idx, doc, nil
		}
		log.Warn(fmt.Sprintf("Persisted index for %s is unusable, rebuilding: %v", doc.ID, err))
	}

	idx, err := index.Build(ctx, doc, passages, e.cfg.Chunking.ChunkSize, e.cfg.Chunking.Overlap, e.embedder)
	if err != nil {
		return nil, nil, err
	}
	if err := idx.Save(dir); err != nil {
		return nil, nil, fmt.Errorf("failed to persist index for %s: %w", doc.ID, err)
	}
	log.Info(fmt.Sprintf("Built and persisted index for %s", doc.ID))

	return idx, doc, nil
}

// Answer runs one question of the session against the document's index.
func (e *Engine) Answer(ctx context.Context, idx interfaces.VectorIndex, question string, history *session.History) (*schema.QAResult, error) {
	return e.qa.Answer(ctx, idx, question, history)
}

func (e *Engine) load(ctx context.Context, path string) ([]*schema.Document, error) {
	var loader interfaces.Loader
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		loader = loaders.NewPdfLoader()
	case ".txt":
		loader = loaders.NewTxtLoader()
	default:
		return nil, fmt.Errorf("unsupported document format: %s", filepath.Ext(path))
	}
	return loader.Load(ctx, path)
}

func (e *Engine) buildMilvusIndex(ctx context.Context, doc *schema.Document, passages []schema.Passage, log *logger.Logger) (interfaces.VectorIndex, error) {
	store, err := vectorstore.NewMilvusStore(e.milvus, doc.ID, log)
	if err != nil {
		return nil, err
	}

	// The collection has no upsert on the passage ID, so inserting an already
	// indexed document would duplicate its rows. Reuse what is stored.
	existing, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		log.Info(fmt.Sprintf("Reusing %d passages already stored in Milvus for %s", existing, doc.ID))
		return store, nil
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed passages for %s: %w", doc.ID, err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors produced for %s", doc.ID)
	}

	if err := e.milvus.EnsureCollection(ctx, len(vectors[0])); err != nil {
		return nil, err
	}

	if err := store.Add(ctx, passages, vectors); err != nil {
		return nil, err
	}
	return store, nil
}
