// Package cmd provides common initialization for the command-line entry
// points.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/innospot/autoflow/pkg/persistence"
	"github.com/innospot/autoflow/pkg/persistence/file"
	"github.com/innospot/autoflow/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL scheme:
// postgres:// for PostgreSQL, anything else is treated as a directory path
// for file-backed storage.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	}

	return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
}
