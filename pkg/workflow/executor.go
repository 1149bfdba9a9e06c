package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/innospot/autoflow/pkg/condition"
	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/registry"
)

// Executor dispatches a single node to its type-specific behavior. It holds
// no run state; the Runner owns retries and the accumulated context.
type Executor struct {
	registry    *registry.Registry
	interpreter *condition.Interpreter
	logger      *slog.Logger
}

func NewExecutor(reg *registry.Registry, logger *slog.Logger) *Executor {
	return &Executor{
		registry:    reg,
		interpreter: condition.NewInterpreter(logger),
		logger:      logger.With("module", "node_executor"),
	}
}

// ExecuteNode runs one node against the execution context and returns its
// output data. The output is merged into the run context by the caller.
func (e *Executor) ExecuteNode(ctx context.Context, node *models.WorkflowNode, executionCtx models.ExecutionContext) (map[string]any, error) {
	if node.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, time.Duration(node.Timeout)*time.Second)
		defer cancel()
	}

	switch node.Type {
	case models.NodeTypeTrigger:
		return e.executeTrigger(node), nil
	case models.NodeTypeCondition:
		return e.executeCondition(node, executionCtx), nil
	case models.NodeTypeAction:
		return e.executeAction(ctx, node, executionCtx)
	case models.NodeTypeDelay:
		return e.executeDelay(ctx, node)
	case models.NodeTypeBranch, models.NodeTypeMerge:
		// Branch routing happens on connection guards; merge passes the
		// accumulated context through. Neither produces data of its own.
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("unknown node type %q", node.Type)
	}
}

// executeTrigger passes input through unchanged and stamps the entry point.
func (e *Executor) executeTrigger(node *models.WorkflowNode) map[string]any {
	return map[string]any{
		"triggered_at": time.Now().UTC().Format(time.RFC3339),
		"trigger_node": node.ID,
	}
}

// executeCondition evaluates the node's expression fail-closed and merges the
// selected output label into the data context. Routing to a downstream node
// is the Runner's concern.
func (e *Executor) executeCondition(node *models.WorkflowNode, executionCtx models.ExecutionContext) map[string]any {
	expression := node.ConfigString("expression")
	result := e.interpreter.Evaluate(expression, executionCtx.Data)

	output := map[string]any{
		"condition_result": result,
	}

	if result {
		output["condition_output"] = "true_output"
	} else {
		output["condition_output"] = "false_output"
	}

	return output
}

func (e *Executor) executeAction(ctx context.Context, node *models.WorkflowNode, executionCtx models.ExecutionContext) (map[string]any, error) {
	actionType := node.ConfigString("action_type")
	if actionType == "" {
		return nil, fmt.Errorf("action node %s has no action_type", node.ID)
	}

	action, err := e.registry.CreateAction(actionType, node.Config)
	if err != nil {
		return nil, err
	}

	return action.Execute(ctx, executionCtx, e.logger.With("node_id", node.ID))
}

// executeDelay suspends cooperatively until the configured duration elapses
// or the run is cancelled.
func (e *Executor) executeDelay(ctx context.Context, node *models.WorkflowNode) (map[string]any, error) {
	seconds := node.ConfigFloat("delay_seconds")

	if seconds > 0 {
		timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return map[string]any{
		"delayed_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}
