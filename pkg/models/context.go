package models

// ExecutionContext is the accumulated data context handed to a node when it
// runs. Data carries workflow variables, trigger input, and every upstream
// node's merged output.
type ExecutionContext struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	NodeID      string         `json:"node_id"`
	Data        map[string]any `json:"data"`
}
