package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/innospot/autoflow/pkg/persistence"
)

// DocumentRepository stores update_store documents as
// <root>/documents/<collection>/<key>.json.
type DocumentRepository struct {
	root string
}

func NewDocumentRepository(root string) *DocumentRepository {
	return &DocumentRepository{root: root}
}

func (dr *DocumentRepository) documentPath(collection, key string) string {
	// Path traversal guard: collection and key become file names.
	sanitize := func(s string) string {
		s = strings.ReplaceAll(s, "/", "_")

		return strings.ReplaceAll(s, "..", "_")
	}

	return filepath.Clean(path.Join(dr.root, "documents", sanitize(collection), sanitize(key)+".json"))
}

// Put creates or replaces a document.
func (dr *DocumentRepository) Put(_ context.Context, collection, key string, document map[string]any) error {
	filePath := dr.documentPath(collection, key)

	err := os.MkdirAll(path.Dir(filePath), 0750)
	if err != nil {
		return fmt.Errorf("failed to create documents directory: %w", err)
	}

	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s/%s: %w", collection, key, err)
	}

	return os.WriteFile(filePath, data, 0600)
}

// Get retrieves a document by collection and key.
func (dr *DocumentRepository) Get(_ context.Context, collection, key string) (map[string]any, error) {
	body, err := os.ReadFile(dr.documentPath(collection, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrDocumentNotFound
		}

		return nil, fmt.Errorf("failed to read document %s/%s: %w", collection, key, err)
	}

	var document map[string]any

	err = json.Unmarshal(body, &document)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s/%s: %w", collection, key, err)
	}

	return document, nil
}
