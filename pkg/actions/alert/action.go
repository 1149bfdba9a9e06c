// Package alert implements the create_alert action: an alert record is
// merged into the execution context and announced on the event bus.
package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/innospot/autoflow/pkg/eventbus"
	"github.com/innospot/autoflow/pkg/events"
	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/template"
)

type AlertAction struct {
	Severity string
	Message  string
	Source   string

	publisher eventbus.EventPublisher
}

func NewAlertAction(config map[string]any, publisher eventbus.EventPublisher) *AlertAction {
	severity, _ := config["severity"].(string)
	message, _ := config["message"].(string)
	source, _ := config["source"].(string)

	if severity == "" {
		severity = "warning"
	}

	return &AlertAction{
		Severity:  severity,
		Message:   message,
		Source:    source,
		publisher: publisher,
	}
}

func (a *AlertAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", "create_alert", "severity", a.Severity)

	message := template.Render(a.Message, executionCtx.Data)

	alert := map[string]any{
		"severity":   a.Severity,
		"message":    message,
		"source":     a.Source,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}

	event := events.AlertCreated{
		BaseEvent:   events.NewBaseEvent(events.AlertCreatedEvent, executionCtx.WorkflowID),
		ExecutionID: executionCtx.ExecutionID,
		Severity:    a.Severity,
		Message:     message,
		Details:     alert,
	}

	err := a.publisher.Publish(ctx, executionCtx.WorkflowID, event)
	if err != nil {
		logger.Warn("Alert event publish failed", "error", err)

		return nil, err
	}

	logger.Info("Alert created", "message", message)

	return map[string]any{
		"alert_created": true,
		"alert":         alert,
	}, nil
}
