package loaders

import (
	"context"
	"os"
	"path/filepath"

	"articleqa/internal/rag/interfaces"
	"articleqa/internal/rag/schema"
)

// TxtLoader implements the Loader interface for reading plain text files.
type TxtLoader struct{}

// NewTxtLoader creates a new TxtLoader.
func NewTxtLoader() *TxtLoader {
	return &TxtLoader{}
}

// Load reads a text file from the given path and returns it as a single Document.
func (l *TxtLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	docID := filepath.Base(path)
	doc := &schema.Document{
		ID:   docID,
		Text: string(content),
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: docID,
		},
	}

	return []*schema.Document{doc}, nil
}

// compile-time check to ensure TxtLoader implements the Loader interface
var _ interfaces.Loader = (*TxtLoader)(nil)
