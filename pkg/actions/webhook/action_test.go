package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innospot/autoflow/pkg/models"
)

func executionContext(data map[string]any) models.ExecutionContext {
	return models.ExecutionContext{
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		NodeID:      "hook",
		Data:        data,
	}
}

func TestExecute_PostsRenderedPayload(t *testing.T) {
	var (
		gotMethod  string
		gotPath    string
		gotHeader  string
		gotPayload map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("X-Token")

		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	action := NewWebhookAction(map[string]any{
		"url":     server.URL + "/notify/{env}",
		"headers": map[string]any{"X-Token": "token-{env}"},
		"payload": map[string]any{"status": "{outcome}"},
	})

	output, err := action.Execute(context.Background(), executionContext(map[string]any{
		"env":     "prod",
		"outcome": "success",
	}), slog.Default())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/notify/prod", gotPath)
	assert.Equal(t, "token-prod", gotHeader)
	assert.Equal(t, "success", gotPayload["status"])

	assert.Equal(t, true, output["webhook_called"])
	assert.Equal(t, 200, output["status_code"])

	body, ok := output["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, body["ok"])
}

func TestExecute_NonSuccessStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	action := NewWebhookAction(map[string]any{"url": server.URL})

	_, err := action.Execute(context.Background(), executionContext(nil), slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook returned status 503")
}

func TestExecute_NonJSONBodyReturnedAsString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	}))
	defer server.Close()

	action := NewWebhookAction(map[string]any{"url": server.URL, "method": "get"})

	output, err := action.Execute(context.Background(), executionContext(nil), slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "plain text", output["body"])
}

func TestNewWebhookAction_Defaults(t *testing.T) {
	action := NewWebhookAction(map[string]any{"url": "https://example.com"})

	assert.Equal(t, http.MethodPost, action.Method)
	assert.Equal(t, defaultTimeout, action.Timeout)
}
