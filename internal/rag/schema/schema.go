package schema

const (
	// MetadataKeyFileName is the key for the source file name.
	MetadataKeyFileName = "file_name"
	// MetadataKeyPageLabel is the key for the page number or label from the source document.
	MetadataKeyPageLabel = "page_label"
	// MetadataKeyArticleDOI is the key for the article DOI, when known.
	MetadataKeyArticleDOI = "doi"
)

// Document is the raw text extracted from one source unit (a whole file, or a
// single page of a PDF). Documents are immutable once loaded.
type Document struct {
	// ID identifies the document this text belongs to, typically the file name
	// or an article identifier. All pages of one article share the same ID.
	ID string

	// Text is the extracted text content.
	Text string

	// Metadata holds arbitrary data about the document, such as file_name and
	// page_label.
	Metadata map[string]interface{}
}

// Passage is a contiguous, bounded slice of a document's text, the unit of
// retrieval. Passages are immutable once created.
type Passage struct {
	// ID is the unique identifier of this passage.
	ID string `json:"id"`

	// DocumentID is the identifier of the document this passage was cut from.
	DocumentID string `json:"document_id"`

	// SequenceIndex is the position of this passage among all passages of the
	// same document, starting at 0.
	SequenceIndex int `json:"sequence_index"`

	// Page is the 1-based page number the passage starts on, or 0 when the
	// source has no page structure.
	Page int `json:"page,omitempty"`

	// Text is the passage content.
	Text string `json:"text"`
}

// ScoredPassage pairs a passage with its similarity score for one query.
type ScoredPassage struct {
	Passage Passage
	Score   float32
}

// QAResult is the outcome of one answered question: the answer text and the
// passages that were supplied as grounding context, in ranked order.
type QAResult struct {
	Answer  string
	Sources []Passage
}
