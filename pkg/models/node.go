package models

// NodeType represents the kind of work a node performs.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"   // Entry point, passes trigger data through
	NodeTypeCondition NodeType = "condition" // Evaluates an expression against the data context
	NodeTypeAction    NodeType = "action"    // Performs an external side effect
	NodeTypeDelay     NodeType = "delay"     // Suspends the run for a configured duration
	NodeTypeBranch    NodeType = "branch"    // Fans out along guarded connections
	NodeTypeMerge     NodeType = "merge"     // Joins branches back into one path
)

// Position is the node's placement on the visual canvas. The engine never
// reads it; it round-trips for the UI.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// WorkflowNode represents a typed unit of work inside a workflow.
type WorkflowNode struct {
	ID          string         `json:"id"   validate:"required"`
	Type        NodeType       `json:"type" validate:"required"`
	Name        string         `json:"name" validate:"required,min=1"`
	Description string         `json:"description,omitempty"`
	Position    Position       `json:"position"`
	Config      map[string]any `json:"config"`

	Inputs  []*Port `json:"inputs,omitempty"`
	Outputs []*Port `json:"outputs,omitempty"`

	Enabled         bool `json:"enabled"`
	ContinueOnError bool `json:"continue_on_error"`
	Timeout         int  `json:"timeout,omitempty"` // seconds, 0 means inherit workflow timeout
}

// ConfigString returns a string value from the node's config map.
func (n *WorkflowNode) ConfigString(key string) string {
	s, _ := n.Config[key].(string)

	return s
}

// ConfigFloat returns a numeric value from the node's config map. JSON
// decoding yields float64 for all numbers; ints are converted.
func (n *WorkflowNode) ConfigFloat(key string) float64 {
	switch v := n.Config[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
