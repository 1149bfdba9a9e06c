package workflow

import (
	"errors"
	"fmt"
)

// NodeExecutionError reports that a node's underlying behavior failed after
// the retry budget was spent.
type NodeExecutionError struct {
	WorkflowID string
	NodeID     string
	Err        error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %s of workflow %s failed: %v", e.NodeID, e.WorkflowID, e.Err)
}

func (e *NodeExecutionError) Unwrap() error { return e.Err }

// IsNodeExecutionError reports whether err is a node execution failure.
func IsNodeExecutionError(err error) bool {
	var ne *NodeExecutionError

	return errors.As(err, &ne)
}
