package condition

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Comparisons(t *testing.T) {
	context := map[string]any{
		"count":  float64(5),
		"name":   "alice",
		"active": true,
	}

	tests := []struct {
		expression string
		expected   bool
	}{
		{"{count} > 3", true},
		{"{count} >= 5", true},
		{"{count} < 3", false},
		{"{count} <= 4", false},
		{"{count} == 5", true},
		{"{count} != 5", false},
		{`{name} == "alice"`, true},
		{`{name} != "bob"`, true},
		{"{active}", true},
		{"{active} && {count} > 1", true},
		{"{active} && {count} > 10", false},
		{"{count} > 10 || {count} < 6", true},
		{"!{active}", false},
		{"({count} + 1) * 2 == 12", true},
		{"{count} - 2 >= 3", true},
	}

	for _, tt := range tests {
		result, err := Evaluate(tt.expression, context)
		require.NoError(t, err, "expression %q", tt.expression)
		assert.Equal(t, tt.expected, result, "expression %q", tt.expression)
	}
}

func TestEvaluate_UndefinedVariable(t *testing.T) {
	_, err := Evaluate("{missing} > 1", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined variable")
}

func TestEvaluate_NonBooleanResult(t *testing.T) {
	_, err := Evaluate("{count} + 1", map[string]any{"count": float64(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not boolean")
}

func TestEvaluate_MalformedExpression(t *testing.T) {
	_, err := Evaluate("{count} >", map[string]any{"count": float64(1)})
	assert.Error(t, err)
}

func TestInterpreter_FailClosed(t *testing.T) {
	interpreter := NewInterpreter(slog.Default())
	context := map[string]any{"count": float64(5)}

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{"empty expression is vacuously true", "", true},
		{"valid true expression", "{count} == 5", true},
		{"valid false expression", "{count} > 10", false},
		{"undefined variable yields false", "{missing} > 1", false},
		{"malformed expression yields false", "{count} >>> 2", false},
		{"non-boolean result yields false", "{count} + 1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, interpreter.Evaluate(tt.expression, context))
		})
	}
}

func TestInterpreter_StringAndBoolContext(t *testing.T) {
	interpreter := NewInterpreter(slog.Default())

	context := map[string]any{
		"status":   "failed",
		"notified": false,
	}

	assert.True(t, interpreter.Evaluate(`{status} == "failed" && !{notified}`, context))
	assert.False(t, interpreter.Evaluate(`{status} == "completed"`, context))
}
