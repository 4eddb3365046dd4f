package loaders

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ledongthuc/pdf"

	"articleqa/internal/rag/interfaces"
	"articleqa/internal/rag/schema"
)

// PdfLoader implements the Loader interface for reading PDF files.
type PdfLoader struct{}

// NewPdfLoader creates a new PdfLoader.
func NewPdfLoader() *PdfLoader {
	return &PdfLoader{}
}

// Load reads a PDF file, extracts the text of each page, and returns one
// Document per page. All pages share the file name as their document ID so
// that passages cut from them index back to one article.
func (l *PdfLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	docID := filepath.Base(path)

	var documents []*schema.Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d of %s: %w", i, path, err)
		}
		if text == "" {
			continue
		}

		documents = append(documents, &schema.Document{
			ID:   docID,
			Text: text,
			Metadata: map[string]interface{}{
				schema.MetadataKeyFileName:  docID,
				schema.MetadataKeyPageLabel: fmt.Sprintf("%d", i),
			},
		})
	}

	return documents, nil
}

// compile-time check to ensure PdfLoader implements the Loader interface
var _ interfaces.Loader = (*PdfLoader)(nil)
