package store

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/persistence/file"
)

func executionContext(data map[string]any) models.ExecutionContext {
	return models.ExecutionContext{
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		NodeID:      "store",
		Data:        data,
	}
}

func TestExecute_WritesRenderedDocument(t *testing.T) {
	documents := file.NewDocumentRepository(t.TempDir())

	action := NewStoreAction(map[string]any{
		"collection": "deploys",
		"key":        "deploy-{env}",
		"value": map[string]any{
			"status": "{outcome}",
			"count":  float64(1),
		},
	}, documents)

	output, err := action.Execute(context.Background(), executionContext(map[string]any{
		"env":     "prod",
		"outcome": "success",
	}), slog.Default())
	require.NoError(t, err)

	assert.Equal(t, true, output["stored"])
	assert.Equal(t, "deploy-prod", output["key"])

	doc, err := documents.Get(context.Background(), "deploys", "deploy-prod")
	require.NoError(t, err)
	assert.Equal(t, "success", doc["status"])
	assert.Equal(t, float64(1), doc["count"])
}

func TestExecute_MergeOverlaysExistingDocument(t *testing.T) {
	documents := file.NewDocumentRepository(t.TempDir())
	ctx := context.Background()

	require.NoError(t, documents.Put(ctx, "state", "counters", map[string]any{
		"runs":  float64(4),
		"owner": "ops",
	}))

	action := NewStoreAction(map[string]any{
		"collection": "state",
		"key":        "counters",
		"merge":      true,
		"value": map[string]any{
			"runs": float64(5),
		},
	}, documents)

	_, err := action.Execute(ctx, executionContext(nil), slog.Default())
	require.NoError(t, err)

	doc, err := documents.Get(ctx, "state", "counters")
	require.NoError(t, err)
	assert.Equal(t, float64(5), doc["runs"], "merged key overwritten")
	assert.Equal(t, "ops", doc["owner"], "untouched key preserved")
}

func TestExecute_MergeIntoMissingDocument(t *testing.T) {
	documents := file.NewDocumentRepository(t.TempDir())

	action := NewStoreAction(map[string]any{
		"collection": "state",
		"key":        "fresh",
		"merge":      true,
		"value":      map[string]any{"seeded": true},
	}, documents)

	_, err := action.Execute(context.Background(), executionContext(nil), slog.Default())
	require.NoError(t, err)

	doc, err := documents.Get(context.Background(), "state", "fresh")
	require.NoError(t, err)
	assert.Equal(t, true, doc["seeded"])
}
