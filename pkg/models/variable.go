package models

// VariableType constrains the value a workflow variable may carry.
type VariableType string

const (
	VariableTypeString  VariableType = "string"
	VariableTypeNumber  VariableType = "number"
	VariableTypeBoolean VariableType = "boolean"
	VariableTypeObject  VariableType = "object"
	VariableTypeArray   VariableType = "array"
)

// Variable is a named, typed value scoped to a workflow. Sensitive variables
// must be redacted before they reach logs or API responses.
type Variable struct {
	ID          string       `json:"id"`
	Name        string       `json:"name" validate:"required"`
	Type        VariableType `json:"type" validate:"required"`
	Value       any          `json:"value"`
	Description string       `json:"description,omitempty"`
	IsSensitive bool         `json:"is_sensitive"`
}

const redactedPlaceholder = "[redacted]"

// LogValue returns the variable's value in a form safe for log output.
func (v *Variable) LogValue() any {
	if v.IsSensitive {
		return redactedPlaceholder
	}

	return v.Value
}
