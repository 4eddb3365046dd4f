// Package vectorstore provides the remote Milvus-backed passage index, used
// when many articles are indexed into one shared collection instead of
// per-document files on disk.
package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"articleqa/internal/database/milvus"
	"articleqa/internal/rag/errs"
	"articleqa/internal/rag/interfaces"
	"articleqa/internal/rag/schema"
	"articleqa/pkg/logger"
)

// MilvusStore is a Milvus-backed passage index scoped to one document. The
// underlying collection is shared; every query filters on the document
// identifier.
type MilvusStore struct {
	log        *logger.Logger
	client     client.Client
	collection string
	documentID string
	count      int
}

// NewMilvusStore creates a MilvusStore over the shared collection, scoped to
// the given document.
func NewMilvusStore(milvusClient *milvus.MilvusClient, documentID string, log *logger.Logger) (*MilvusStore, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusStore{
		log:        log,
		client:     milvusClient.Client,
		collection: milvusClient.Config.Collection,
		documentID: documentID,
		count:      0,
	}, nil
}

// Load checks the shared collection for passages already stored under this
// document and primes Len with their count. A positive count means the
// document is indexed and must not be inserted again: the collection has no
// upsert on the passage ID, so a second insert would duplicate every row.
func (s *MilvusStore) Load(ctx context.Context) (int, error) {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return 0, nil
	}

	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return 0, fmt.Errorf("failed to load collection: %w", err)
	}

	filterExpr := fmt.Sprintf(`%s == "%s"`, milvus.FieldDocumentID, s.documentID)
	result, err := s.client.Query(ctx, s.collection, nil, filterExpr, []string{milvus.FieldID})
	if err != nil {
		return 0, fmt.Errorf("failed to query stored passages: %w", err)
	}

	for _, col := range result {
		if col.Name() == milvus.FieldID {
			s.count = col.Len()
		}
	}
	return s.count, nil
}

// Add inserts the passages of the document with their vectors. Passages and
// vectors must be aligned by position.
func (s *MilvusStore) Add(ctx context.Context, passages []schema.Passage, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return fmt.Errorf("mismatch between number of passages (%d) and vectors (%d)", len(passages), len(vectors))
	}
	if len(passages) == 0 {
		return nil
	}

	ids := make([]string, len(passages))
	docIDs := make([]string, len(passages))
	seqs := make([]int64, len(passages))
	pages := make([]int64, len(passages))
	texts := make([]string, len(passages))

	for i, p := range passages {
		ids[i] = p.ID
		docIDs[i] = p.DocumentID
		seqs[i] = int64(p.SequenceIndex)
		pages[i] = int64(p.Page)
		texts[i] = p.Text
	}

	dim := len(vectors[0])
	s.log.Info(fmt.Sprintf("Inserting %d passages into Milvus collection: %s", len(passages), s.collection))

	_, err := s.client.Insert(ctx, s.collection, "", /* default partition */
		entity.NewColumnVarChar(milvus.FieldID, ids),
		entity.NewColumnVarChar(milvus.FieldDocumentID, docIDs),
		entity.NewColumnInt64(milvus.FieldSequenceIndex, seqs),
		entity.NewColumnInt64(milvus.FieldPage, pages),
		entity.NewColumnVarChar(milvus.FieldText, texts),
		entity.NewColumnFloatVector(milvus.FieldEmbedding, dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("failed to insert passages into Milvus: %w", err)
	}

	s.count += len(passages)
	return nil
}

// Query performs a vector search over the document's passages, ranked by
// descending cosine similarity with ties broken by ascending sequence index.
func (s *MilvusStore) Query(ctx context.Context, vector []float32, k int) ([]schema.ScoredPassage, error) {
	if k <= 0 {
		return nil, errs.Configf("top-k must be positive, got %d", k)
	}

	searchParams, _ := entity.NewIndexIvfFlatSearchParam(10)
	outputFields := []string{milvus.FieldID, milvus.FieldDocumentID, milvus.FieldSequenceIndex, milvus.FieldPage, milvus.FieldText}
	filterExpr := fmt.Sprintf(`%s == "%s"`, milvus.FieldDocumentID, s.documentID)

	searchResults, err := s.client.Search(
		ctx, s.collection, []string{}, filterExpr, outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		milvus.FieldEmbedding, entity.COSINE, k, searchParams,
	)
	if err != nil {
		return nil, errs.Provider("query milvus", err)
	}

	var results []schema.ScoredPassage
	for _, res := range searchResults {
		findColumn := func(name string) entity.Column {
			for _, field := range res.Fields {
				if field.Name() == name {
					return field
				}
			}
			return nil
		}

		idCol, ok := findColumn(milvus.FieldID).(*entity.ColumnVarChar)
		if !ok {
			s.log.Warn("Search result is missing the id field or has the wrong type, skipping.")
			continue
		}
		textCol, _ := findColumn(milvus.FieldText).(*entity.ColumnVarChar)
		docIDCol, _ := findColumn(milvus.FieldDocumentID).(*entity.ColumnVarChar)
		seqCol, _ := findColumn(milvus.FieldSequenceIndex).(*entity.ColumnInt64)
		pageCol, _ := findColumn(milvus.FieldPage).(*entity.ColumnInt64)

		for i := 0; i < res.ResultCount; i++ {
			passage := schema.Passage{ID: idCol.Data()[i]}
			if docIDCol != nil {
				passage.DocumentID = docIDCol.Data()[i]
			}
			if seqCol != nil {
				passage.SequenceIndex = int(seqCol.Data()[i])
			}
			if pageCol != nil {
				passage.Page = int(pageCol.Data()[i])
			}
			if textCol != nil {
				passage.Text = textCol.Data()[i]
			}
			results = append(results, schema.ScoredPassage{Passage: passage, Score: res.Scores[i]})
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

// Len reports the number of passages inserted through this store.
func (s *MilvusStore) Len() int {
	return s.count
}

// compile-time check to ensure MilvusStore implements the VectorIndex interface
var _ interfaces.VectorIndex = (*MilvusStore)(nil)
