package alert

import (
	"github.com/innospot/autoflow/pkg/eventbus"
	"github.com/innospot/autoflow/pkg/protocol"
)

type AlertActionFactory struct {
	publisher eventbus.EventPublisher
}

func NewAlertActionFactory(publisher eventbus.EventPublisher) *AlertActionFactory {
	return &AlertActionFactory{publisher: publisher}
}

func (f *AlertActionFactory) ID() string {
	return "create_alert"
}

func (f *AlertActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAlertAction(config, f.publisher), nil
}

func (f *AlertActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"severity": map[string]any{
				"type":    "string",
				"default": "warning",
				"enum":    []string{"info", "warning", "error", "critical"},
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Alert text; {name} placeholders are resolved from the execution context",
			},
			"source": map[string]any{
				"type":        "string",
				"description": "Logical component that raised the alert",
			},
		},
		"required": []string{"message"},
	}
}
