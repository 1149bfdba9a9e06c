// Package template renders {name} placeholders in action configuration
// strings using values from the accumulated execution context.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var placeholder = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Render substitutes every {name} token in input with the matching context
// value. Unknown tokens are left untouched so the output makes the miss
// visible instead of silently producing an empty string.
func Render(input string, data map[string]any) string {
	return placeholder.ReplaceAllStringFunc(input, func(token string) string {
		name := token[1 : len(token)-1]

		value, ok := data[name]
		if !ok {
			return token
		}

		switch v := value.(type) {
		case string:
			return v
		case float64, int, int64, bool:
			return fmt.Sprintf("%v", v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return token
			}

			return string(encoded)
		}
	})
}

// RenderConfig returns a copy of config with every string value rendered.
// Nested maps are rendered recursively; non-string values pass through.
func RenderConfig(config, data map[string]any) map[string]any {
	rendered := make(map[string]any, len(config))

	for key, value := range config {
		switch v := value.(type) {
		case string:
			rendered[key] = Render(v, data)
		case map[string]any:
			rendered[key] = RenderConfig(v, data)
		default:
			rendered[key] = value
		}
	}

	return rendered
}
