package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	data := map[string]any{
		"name":  "deploy",
		"count": float64(3),
		"ok":    true,
		"tags":  []any{"a", "b"},
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain string", "no tokens here", "no tokens here"},
		{"string value", "workflow {name} done", "workflow deploy done"},
		{"number value", "ran {count} times", "ran 3 times"},
		{"boolean value", "ok={ok}", "ok=true"},
		{"json value", "tags: {tags}", `tags: ["a","b"]`},
		{"unknown token kept", "missing {nope}", "missing {nope}"},
		{"multiple tokens", "{name}:{count}", "deploy:3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Render(tt.input, data))
		})
	}
}

func TestRenderConfig(t *testing.T) {
	config := map[string]any{
		"message": "hello {user}",
		"nested": map[string]any{
			"url": "https://example.com/{user}",
		},
		"timeout": 30,
	}

	rendered := RenderConfig(config, map[string]any{"user": "ana"})

	assert.Equal(t, "hello ana", rendered["message"])
	assert.Equal(t, "https://example.com/ana", rendered["nested"].(map[string]any)["url"])
	assert.Equal(t, 30, rendered["timeout"])

	// Original config is untouched.
	assert.Equal(t, "hello {user}", config["message"])
}
