package webhook

import "github.com/innospot/autoflow/pkg/protocol"

type WebhookActionFactory struct{}

func NewWebhookActionFactory() *WebhookActionFactory {
	return &WebhookActionFactory{}
}

func (f *WebhookActionFactory) ID() string {
	return "call_webhook"
}

func (f *WebhookActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewWebhookAction(config), nil
}

func (f *WebhookActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Target URL; {name} placeholders are resolved from the execution context",
			},
			"method": map[string]any{
				"type":    "string",
				"default": "POST",
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Extra request headers",
			},
			"payload": map[string]any{
				"type":        "object",
				"description": "JSON body to send",
			},
			"timeout_seconds": map[string]any{
				"type":    "number",
				"default": 30,
			},
		},
		"required": []string{"url"},
	}
}
