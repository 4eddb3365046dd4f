package splitters

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"articleqa/internal/rag/errs"
	"articleqa/internal/rag/interfaces"
	"articleqa/internal/rag/schema"
)

// CharacterSplitter implements the Splitter interface by sliding a fixed-size
// character window across each document's text, left to right, with a stride
// of ChunkSize-Overlap. The trailing Overlap characters of one passage are
// repeated at the start of the next.
type CharacterSplitter struct {
	ChunkSize int
	Overlap   int
}

// NewCharacterSplitter validates the chunking parameters and creates a new
// CharacterSplitter. Invalid parameters are a configuration error, rejected
// before any passage is produced.
func NewCharacterSplitter(chunkSize, overlap int) (*CharacterSplitter, error) {
	if chunkSize <= 0 {
		return nil, errs.Configf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, errs.Configf("overlap must satisfy 0 <= overlap < chunk size, got overlap=%d chunk size=%d", overlap, chunkSize)
	}
	return &CharacterSplitter{ChunkSize: chunkSize, Overlap: overlap}, nil
}

// Split cuts the documents into passages. The documents are the ordered units
// of one source (for a PDF, its pages); sequence indexes run 0..n-1 across
// all of them. Text shorter than the chunk size becomes a single passage,
// except empty text, which contributes no passage at all. Splitting is
// deterministic: the same documents and parameters always yield the same
// passages, including their IDs.
func (s *CharacterSplitter) Split(ctx context.Context, docs []*schema.Document) ([]schema.Passage, error) {
	var passages []schema.Passage

	seq := 0
	for _, doc := range docs {
		runes := []rune(doc.Text)
		step := s.ChunkSize - s.Overlap

		for start := 0; start < len(runes); start += step {
			end := start + s.ChunkSize
			if end > len(runes) {
				end = len(runes)
			}

			passages = append(passages, schema.Passage{
				ID:            passageID(doc.ID, seq),
				DocumentID:    doc.ID,
				SequenceIndex: seq,
				Page:          pageOf(doc),
				Text:          string(runes[start:end]),
			})
			seq++

			if end == len(runes) {
				break
			}
		}
	}

	return passages, nil
}

// passageID derives a stable identifier from the document ID and the
// passage's sequence index, so rebuilding an index is idempotent.
func passageID(docID string, seq int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s#%d", docID, seq))).String()
}

// pageOf reads the 1-based page number from the document's metadata, 0 when
// the source has no page structure.
func pageOf(doc *schema.Document) int {
	if doc.Metadata == nil {
		return 0
	}
	label, ok := doc.Metadata[schema.MetadataKeyPageLabel].(string)
	if !ok {
		return 0
	}
	page, err := strconv.Atoi(label)
	if err != nil {
		return 0
	}
	return page
}

// compile-time check to ensure CharacterSplitter implements the Splitter interface
var _ interfaces.Splitter = (*CharacterSplitter)(nil)
