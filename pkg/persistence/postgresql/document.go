package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/innospot/autoflow/pkg/persistence"
)

// DocumentRepository backs the update_store action with a JSONB table keyed
// by (collection, key).
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Put creates or replaces a document.
func (dr *DocumentRepository) Put(ctx context.Context, collection, key string, document map[string]any) error {
	body, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s/%s: %w", collection, key, err)
	}

	query := `
		INSERT INTO documents (collection, key, document, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, key) DO UPDATE SET
			document = EXCLUDED.document,
			updated_at = NOW()
	`

	_, err = dr.db.ExecContext(ctx, query, collection, key, body)
	if err != nil {
		return fmt.Errorf("failed to save document %s/%s: %w", collection, key, err)
	}

	return nil
}

// Get retrieves a document by collection and key.
func (dr *DocumentRepository) Get(ctx context.Context, collection, key string) (map[string]any, error) {
	var body []byte

	err := dr.db.QueryRowContext(ctx,
		"SELECT document FROM documents WHERE collection = $1 AND key = $2", collection, key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrDocumentNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query document %s/%s: %w", collection, key, err)
	}

	var document map[string]any

	err = json.Unmarshal(body, &document)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s/%s: %w", collection, key, err)
	}

	return document, nil
}
