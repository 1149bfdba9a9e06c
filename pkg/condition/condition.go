// Package condition evaluates guard expressions against an execution's data
// context. Expressions use a restricted grammar of literals, arithmetic,
// comparison, and boolean operators; `{name}` tokens are substituted with the
// JSON encoding of the named context value before parsing. There are no
// function calls and no assignment, so a condition can never perform a side
// effect.
package condition

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
)

var variableToken = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Evaluate substitutes context variables into the expression and evaluates
// it. The result must be a boolean; anything else is an error.
func Evaluate(expression string, context map[string]any) (bool, error) {
	substituted, err := substitute(expression, context)
	if err != nil {
		return false, err
	}

	value, err := parse(substituted)
	if err != nil {
		return false, err
	}

	result, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q is not boolean (got %T)", expression, value)
	}

	return result, nil
}

func substitute(expression string, context map[string]any) (string, error) {
	var missing string

	substituted := variableToken.ReplaceAllStringFunc(expression, func(token string) string {
		name := token[1 : len(token)-1]

		value, ok := context[name]
		if !ok {
			if missing == "" {
				missing = name
			}

			return token
		}

		encoded, err := json.Marshal(value)
		if err != nil {
			if missing == "" {
				missing = name
			}

			return token
		}

		return string(encoded)
	})

	if missing != "" {
		return "", fmt.Errorf("undefined variable %q in expression %q", missing, expression)
	}

	return substituted, nil
}

// Interpreter is the fail-closed evaluator used during runs: a malformed
// condition or a missing variable yields false, never an error, so a branch
// can never take an unintended path.
type Interpreter struct {
	logger *slog.Logger
}

func NewInterpreter(logger *slog.Logger) *Interpreter {
	return &Interpreter{
		logger: logger.With("module", "condition_interpreter"),
	}
}

// Evaluate returns the expression result, or false when evaluation fails.
// An empty expression is vacuously true so unguarded connections pass.
func (i *Interpreter) Evaluate(expression string, context map[string]any) bool {
	if expression == "" {
		return true
	}

	result, err := Evaluate(expression, context)
	if err != nil {
		i.logger.Warn("Condition evaluation failed, treating as false",
			"expression", expression,
			"error", err,
		)

		return false
	}

	return result
}
