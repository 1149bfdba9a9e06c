// Package store implements the update_store action, writing a key/value
// document through the persistence layer's document repository.
package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/persistence"
	"github.com/innospot/autoflow/pkg/template"
)

type StoreAction struct {
	Collection string
	Key        string
	Value      map[string]any
	Merge      bool

	documents persistence.DocumentRepository
}

func NewStoreAction(config map[string]any, documents persistence.DocumentRepository) *StoreAction {
	collection, _ := config["collection"].(string)
	key, _ := config["key"].(string)
	merge, _ := config["merge"].(bool)

	value, _ := config["value"].(map[string]any)
	if value == nil {
		value = map[string]any{}
	}

	return &StoreAction{
		Collection: collection,
		Key:        key,
		Value:      value,
		Merge:      merge,
		documents:  documents,
	}
}

func (a *StoreAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", "update_store", "collection", a.Collection)

	key := template.Render(a.Key, executionCtx.Data)
	value := template.RenderConfig(a.Value, executionCtx.Data)

	if a.Merge {
		existing, err := a.documents.Get(ctx, a.Collection, key)
		if err != nil && !errors.Is(err, persistence.ErrDocumentNotFound) {
			return nil, err
		}

		for k, v := range value {
			if existing == nil {
				existing = map[string]any{}
			}

			existing[k] = v
		}

		if existing != nil {
			value = existing
		}
	}

	err := a.documents.Put(ctx, a.Collection, key, value)
	if err != nil {
		logger.Warn("Document write failed", "key", key, "error", err)

		return nil, err
	}

	logger.Info("Document stored", "key", key)

	return map[string]any{
		"stored":     true,
		"collection": a.Collection,
		"key":        key,
	}, nil
}
