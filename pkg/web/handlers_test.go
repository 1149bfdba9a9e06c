package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innospot/autoflow/pkg/engine"
	"github.com/innospot/autoflow/pkg/mocks"
	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/persistence/file"
	"github.com/innospot/autoflow/pkg/registry"
	"github.com/innospot/autoflow/pkg/testutil"
	"github.com/innospot/autoflow/pkg/workflow"
)

func newTestApp(t *testing.T) (*fiber.App, *engine.Engine) {
	t.Helper()

	logger := slog.Default()
	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	registry.RegisterDefaults(reg, mocks.PublisherStub{}, store.DocumentRepository())

	runner := workflow.NewRunner(
		workflow.NewExecutor(reg, logger),
		store.ExecutionRepository(),
		mocks.PublisherStub{},
		logger,
	)

	eng := engine.NewEngine(store, runner, mocks.PublisherStub{}, logger, engine.Config{})
	handlers := NewAPIHandlers(eng, logger)

	app := fiber.New()

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Post("/:id/trigger", handlers.TriggerWorkflow)
	w.Get("/:id/executions", handlers.ListExecutions)
	w.Get("/:id/analytics", handlers.GetAnalytics)

	e := app.Group("/executions")
	e.Get("/:id", handlers.GetExecution)
	e.Delete("/:id", handlers.CancelExecution)

	app.Get("/health", handlers.HealthCheck)

	return app, eng
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]any

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))

	return decoded
}

func createActiveWorkflow(t *testing.T, eng *engine.Engine) *models.Workflow {
	t.Helper()

	wf := testutil.NewWorkflow([]*models.WorkflowNode{
		testutil.NewNode(models.NodeTypeTrigger, testutil.WithID("trigger")),
	})

	created, err := eng.CreateWorkflow(context.Background(), wf)
	require.NoError(t, err)

	return created
}

func TestHealthCheck(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "healthy", body["status"])
}

func TestCreateWorkflow_Created(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/workflows", map[string]any{
		"name":   "Deploy Notifier",
		"status": "active",
		"nodes": []map[string]any{
			{"id": "trigger", "type": "trigger", "name": "Start", "enabled": true},
		},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, float64(1), body["version"])
}

func TestCreateWorkflow_ShortNameIsBadRequest(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/workflows", map[string]any{"name": "ab"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateWorkflow_InvalidGraphIsBadRequest(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/workflows", map[string]any{
		"name":   "Broken Graph",
		"status": "active",
		"nodes": []map[string]any{
			{"id": "a", "type": "action", "name": "A", "enabled": true},
		},
		"connections": []map[string]any{
			{"id": "c", "source_node_id": "a", "target_node_id": "ghost"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflow_NotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/workflows/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "workflow_not_found", body["type"])
}

func TestUpdateWorkflow_Merges(t *testing.T) {
	app, eng := newTestApp(t)
	created := createActiveWorkflow(t, eng)

	resp := doJSON(t, app, http.MethodPatch, "/workflows/"+created.ID, map[string]any{
		"name": "Renamed Flow",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Renamed Flow", body["name"])
	assert.Equal(t, float64(2), body["version"])
}

func TestExecuteWorkflow_Accepted(t *testing.T) {
	app, eng := newTestApp(t)
	created := createActiveWorkflow(t, eng)

	resp := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", map[string]any{
		"input": map[string]any{"value": 7},
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, string(models.ExecutionStatusPending), body["status"])
	assert.Equal(t, string(models.TriggerManual), body["trigger_type"])
}

func TestExecuteWorkflow_InactiveIsConflict(t *testing.T) {
	app, eng := newTestApp(t)

	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{testutil.NewNode(models.NodeTypeTrigger)},
		testutil.WithStatus(models.WorkflowStatusDraft),
	)

	created, err := eng.CreateWorkflow(context.Background(), wf)
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "workflow_not_active", body["type"])
}

func TestExecuteWorkflow_ConcurrencyLimitIsTooManyRequests(t *testing.T) {
	app, eng := newTestApp(t)

	wf := testutil.NewWorkflow([]*models.WorkflowNode{
		testutil.NewNode(models.NodeTypeTrigger),
	})
	wf.ConcurrentExecutions = 1

	created, err := eng.CreateWorkflow(context.Background(), wf)
	require.NoError(t, err)

	first := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", nil)
	require.Equal(t, http.StatusAccepted, first.StatusCode)

	second := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	body := decodeBody(t, second)
	assert.Equal(t, "concurrency_limit", body["type"])
}

func TestTriggerWorkflow_WebhookTriggerType(t *testing.T) {
	app, eng := newTestApp(t)
	created := createActiveWorkflow(t, eng)

	resp := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/trigger", map[string]any{
		"event": "push",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, string(models.TriggerWebhook), body["trigger_type"])

	input, ok := body["input_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "push", input["event"])
}

func TestListExecutions_UnknownWorkflowIsNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/workflows/ghost/executions", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetAnalytics_InvalidDateIsBadRequest(t *testing.T) {
	app, eng := newTestApp(t)
	created := createActiveWorkflow(t, eng)

	resp := doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/analytics?start=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetAnalytics_EmptyHistory(t *testing.T) {
	app, eng := newTestApp(t)
	created := createActiveWorkflow(t, eng)

	resp := doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/analytics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(0), body["total_executions"])
	assert.Equal(t, float64(0), body["error_rate"])
}

func TestCancelExecution_UnknownIsNoContent(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodDelete, "/executions/ghost", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDeleteWorkflow_NoContent(t *testing.T) {
	app, eng := newTestApp(t)
	created := createActiveWorkflow(t, eng)

	resp := doJSON(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	after := doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, after.StatusCode)
}
