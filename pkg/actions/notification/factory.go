package notification

import (
	"github.com/innospot/autoflow/pkg/eventbus"
	"github.com/innospot/autoflow/pkg/protocol"
)

type NotificationActionFactory struct {
	publisher eventbus.EventPublisher
}

func NewNotificationActionFactory(publisher eventbus.EventPublisher) *NotificationActionFactory {
	return &NotificationActionFactory{publisher: publisher}
}

func (f *NotificationActionFactory) ID() string {
	return "send_notification"
}

func (f *NotificationActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewNotificationAction(config, f.publisher), nil
}

func (f *NotificationActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"channel": map[string]any{
				"type":        "string",
				"description": "Delivery channel name",
			},
			"recipient": map[string]any{
				"type":        "string",
				"description": "Target user or group identifier",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message body; {name} placeholders are resolved from the execution context",
			},
		},
		"required": []string{"message"},
	}
}
