// Package webhook implements the call_webhook action: a bounded-timeout HTTP
// request where any transport failure or non-2xx response is an execution
// error.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/template"
)

const defaultTimeout = 30 * time.Second

type WebhookAction struct {
	URL     string
	Method  string
	Headers map[string]string
	Payload map[string]any
	Timeout time.Duration

	client *http.Client
}

func NewWebhookAction(config map[string]any) *WebhookAction {
	url, _ := config["url"].(string)
	method, _ := config["method"].(string)

	if method == "" {
		method = http.MethodPost
	}

	headers := make(map[string]string)
	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersConfig {
			if strVal, ok := v.(string); ok {
				headers[k] = strVal
			}
		}
	}

	payload, _ := config["payload"].(map[string]any)

	timeout := defaultTimeout
	if seconds, ok := config["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
	}

	return &WebhookAction{
		URL:     url,
		Method:  strings.ToUpper(method),
		Headers: headers,
		Payload: payload,
		Timeout: timeout,
		client:  &http.Client{},
	}
}

func (a *WebhookAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", "call_webhook", "method", a.Method)

	url := template.Render(a.URL, executionCtx.Data)

	var bodyReader io.Reader

	if a.Payload != nil {
		rendered := template.RenderConfig(a.Payload, executionCtx.Data)

		encoded, err := json.Marshal(rendered)
		if err != nil {
			return nil, fmt.Errorf("failed to encode webhook payload: %w", err)
		}

		bodyReader = bytes.NewReader(encoded)
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, a.Method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}

	if a.Payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range a.Headers {
		req.Header.Set(key, template.Render(value, executionCtx.Data))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("Failed to close webhook response body", "error", closeErr)
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	var body any
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		body = string(bodyBytes)
	}

	logger.Info("Webhook delivered", "status_code", resp.StatusCode)

	return map[string]any{
		"webhook_called": true,
		"status_code":    resp.StatusCode,
		"body":           body,
	}, nil
}
