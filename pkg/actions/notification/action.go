// Package notification implements the send_notification action. Delivery is
// fire-and-forget: the rendered message is published on the event bus and the
// outcome is logged.
package notification

import (
	"context"
	"log/slog"

	"github.com/innospot/autoflow/pkg/eventbus"
	"github.com/innospot/autoflow/pkg/events"
	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/template"
)

type NotificationAction struct {
	Channel   string
	Recipient string
	Message   string

	publisher eventbus.EventPublisher
}

func NewNotificationAction(config map[string]any, publisher eventbus.EventPublisher) *NotificationAction {
	channel, _ := config["channel"].(string)
	recipient, _ := config["recipient"].(string)
	message, _ := config["message"].(string)

	if channel == "" {
		channel = "default"
	}

	return &NotificationAction{
		Channel:   channel,
		Recipient: recipient,
		Message:   message,
		publisher: publisher,
	}
}

func (a *NotificationAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", "send_notification", "channel", a.Channel)

	message := template.Render(a.Message, executionCtx.Data)

	event := events.NotificationSent{
		BaseEvent:   events.NewBaseEvent(events.NotificationSentEvent, executionCtx.WorkflowID),
		ExecutionID: executionCtx.ExecutionID,
		Channel:     a.Channel,
		Recipient:   a.Recipient,
		Message:     message,
	}

	err := a.publisher.Publish(ctx, executionCtx.WorkflowID, event)
	if err != nil {
		logger.Warn("Notification delivery failed", "error", err)

		return nil, err
	}

	logger.Info("Notification sent", "recipient", a.Recipient)

	return map[string]any{
		"notification_sent": true,
		"channel":           a.Channel,
		"recipient":         a.Recipient,
		"message":           message,
	}, nil
}
