package store

import (
	"github.com/innospot/autoflow/pkg/persistence"
	"github.com/innospot/autoflow/pkg/protocol"
)

type StoreActionFactory struct {
	documents persistence.DocumentRepository
}

func NewStoreActionFactory(documents persistence.DocumentRepository) *StoreActionFactory {
	return &StoreActionFactory{documents: documents}
}

func (f *StoreActionFactory) ID() string {
	return "update_store"
}

func (f *StoreActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewStoreAction(config, f.documents), nil
}

func (f *StoreActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"collection": map[string]any{
				"type":        "string",
				"description": "Document collection name",
			},
			"key": map[string]any{
				"type":        "string",
				"description": "Document key; {name} placeholders are resolved from the execution context",
			},
			"value": map[string]any{
				"type":        "object",
				"description": "Document body to write",
			},
			"merge": map[string]any{
				"type":        "boolean",
				"default":     false,
				"description": "Merge into the existing document instead of replacing it",
			},
		},
		"required": []string{"collection", "key"},
	}
}
