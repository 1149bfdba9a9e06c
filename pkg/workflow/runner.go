// Package workflow executes runs of a workflow definition: the Runner walks
// the validated node graph, the Executor dispatches individual nodes.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/innospot/autoflow/pkg/condition"
	"github.com/innospot/autoflow/pkg/eventbus"
	"github.com/innospot/autoflow/pkg/events"
	"github.com/innospot/autoflow/pkg/graph"
	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/persistence"
)

// Retry budget when the definition does not set MaxRetries.
const defaultMaxRetries = 3

// Runner drives one execution through the node graph. State transitions:
// pending -> running -> completed | failed | cancelled. Partial state is
// persisted after every node so a crash loses at most one step.
type Runner struct {
	executor    *Executor
	interpreter *condition.Interpreter
	executions  persistence.ExecutionRepository
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

func NewRunner(executor *Executor, executions persistence.ExecutionRepository, publisher eventbus.EventPublisher, logger *slog.Logger) *Runner {
	return &Runner{
		executor:    executor,
		interpreter: condition.NewInterpreter(logger),
		executions:  executions,
		publisher:   publisher,
		logger:      logger.With("module", "workflow_runner"),
	}
}

// Run executes the workflow until completion, failure, or cancellation. The
// returned error reflects the run outcome; the execution record always ends
// terminal and persisted.
func (r *Runner) Run(ctx context.Context, wf *models.Workflow, execution *models.WorkflowExecution) error {
	logger := r.logger.With("workflow_id", wf.ID, "execution_id", execution.ID)

	g, err := graph.New(wf)
	if err != nil {
		return r.failRun(ctx, wf, execution, "", err, logger)
	}

	order, err := g.Order()
	if err != nil {
		return r.failRun(ctx, wf, execution, "", err, logger)
	}

	execution.Status = models.ExecutionStatusRunning
	execution.AppendLog(models.LogInfo, "Execution started", "", nil)
	r.saveExecution(ctx, execution, logger)

	r.publish(ctx, execution.WorkflowID, events.ExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.ExecutionStartedEvent, wf.ID),
		ExecutionID:  execution.ID,
		WorkflowName: wf.Name,
		TriggerType:  string(execution.TriggerType),
		InputData:    execution.InputData,
	}, logger)

	// The data context starts from workflow variables plus trigger input;
	// every successful node merges its output in.
	data := wf.VariableContext()
	for k, v := range execution.InputData {
		data[k] = v
	}

	// With connections, a node only runs once an incoming edge's guard has
	// passed. Flat workflows run every node in definition order.
	activated := make(map[string]bool, len(order))

	if g.HasConnections() {
		for _, entry := range g.Entries() {
			activated[entry.ID] = true
		}
	}

	for _, node := range order {
		select {
		case <-ctx.Done():
			return r.cancelRun(ctx, execution, logger)
		default:
		}

		if g.HasConnections() && !activated[node.ID] {
			logger.Debug("Node not activated by any connection, skipping", "node_id", node.ID)

			continue
		}

		if !node.Enabled {
			execution.AppendLog(models.LogDebug, "Node disabled, skipped", node.ID, nil)

			continue
		}

		nodeExec, output := r.runNode(ctx, wf, node, execution, data, logger)

		execution.NodeExecutions = append(execution.NodeExecutions, nodeExec)
		r.saveExecution(ctx, execution, logger)

		if nodeExec.Status == models.NodeStatusFailed {
			// A node interrupted by a user cancel is not a workflow failure.
			// A deadline expiry (workflow timeout) still is.
			if errors.Is(ctx.Err(), context.Canceled) {
				return r.cancelRun(ctx, execution, logger)
			}

			if !node.ContinueOnError {
				nodeErr := &NodeExecutionError{
					WorkflowID: wf.ID,
					NodeID:     node.ID,
					Err:        fmt.Errorf("%s", nodeExec.ErrorMessage),
				}

				return r.failRun(ctx, wf, execution, node.ID, nodeErr, logger)
			}

			execution.AppendLog(models.LogWarning, "Continuing after node failure", node.ID,
				map[string]any{"error": nodeExec.ErrorMessage})
		} else {
			for k, v := range output {
				data[k] = v
			}
		}

		for _, conn := range g.Outgoing(node.ID) {
			if r.interpreter.Evaluate(conn.Condition, data) {
				activated[conn.TargetNodeID] = true
			} else {
				logger.Debug("Connection guard rejected, pruning edge",
					"source", conn.SourceNodeID, "target", conn.TargetNodeID)
			}
		}
	}

	execution.OutputData = copyContext(data)
	execution.Finalize(models.ExecutionStatusCompleted)
	execution.AppendLog(models.LogInfo, "Execution completed", "", nil)
	r.saveExecution(ctx, execution, logger)

	r.publish(ctx, execution.WorkflowID, events.ExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, wf.ID),
		ExecutionID:   execution.ID,
		DurationMs:    execution.Duration,
		NodesExecuted: len(execution.NodeExecutions),
		OutputData:    execution.OutputData,
	}, logger)

	logger.Info("Execution completed",
		"duration_ms", execution.Duration, "nodes", len(execution.NodeExecutions))

	return nil
}

// runNode executes one node with the bounded retry policy: failed attempts
// are retried only while continue_on_error is false and the retry budget
// remains; every failure increments retry_count.
func (r *Runner) runNode(ctx context.Context, wf *models.Workflow, node *models.WorkflowNode, execution *models.WorkflowExecution, data map[string]any, logger *slog.Logger) (*models.NodeExecution, map[string]any) {
	maxRetries := wf.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	started := time.Now().UTC()
	nodeExec := &models.NodeExecution{
		NodeID:    node.ID,
		Status:    models.NodeStatusRunning,
		StartedAt: &started,
		InputData: copyContext(data),
	}

	execution.AppendLog(models.LogInfo, "Node started", node.ID, map[string]any{"type": string(node.Type)})

	executionCtx := models.ExecutionContext{
		ExecutionID: execution.ID,
		WorkflowID:  wf.ID,
		NodeID:      node.ID,
		Data:        data,
	}

	var (
		output  map[string]any
		lastErr error
	)

	for nodeExec.RetryCount < maxRetries {
		output, lastErr = r.executor.ExecuteNode(ctx, node, executionCtx)
		if lastErr == nil {
			break
		}

		nodeExec.RetryCount++

		if node.ContinueOnError || ctx.Err() != nil {
			break
		}

		if nodeExec.RetryCount < maxRetries {
			execution.AppendLog(models.LogWarning,
				fmt.Sprintf("Node retry attempt %d/%d", nodeExec.RetryCount, maxRetries-1),
				node.ID, map[string]any{"error": lastErr.Error()})
			logger.Warn("Retrying node", "node_id", node.ID,
				"attempt", nodeExec.RetryCount, "error", lastErr)

			if !r.retryDelay(ctx, wf.RetryDelay) {
				break
			}
		}
	}

	completed := time.Now().UTC()
	nodeExec.CompletedAt = &completed
	nodeExec.Duration = completed.Sub(started).Milliseconds()

	if lastErr != nil {
		nodeExec.Status = models.NodeStatusFailed
		nodeExec.ErrorMessage = lastErr.Error()

		execution.AppendLog(models.LogError, "Node failed", node.ID, map[string]any{
			"error":       lastErr.Error(),
			"retry_count": nodeExec.RetryCount,
		})

		r.publish(ctx, wf.ID, events.NodeFailed{
			BaseEvent:   events.NewBaseEvent(events.NodeFailedEvent, wf.ID),
			ExecutionID: execution.ID,
			NodeID:      node.ID,
			DurationMs:  nodeExec.Duration,
			RetryCount:  nodeExec.RetryCount,
			Error:       lastErr.Error(),
		}, logger)

		return nodeExec, nil
	}

	nodeExec.Status = models.NodeStatusCompleted
	nodeExec.OutputData = output

	if node.Type == models.NodeTypeAction {
		switch node.ConfigString("action_type") {
		case "call_webhook", "send_notification":
			execution.ResourceUsage.APICalls++
		}
	}

	execution.AppendLog(models.LogInfo, "Node completed", node.ID, nil)

	r.publish(ctx, wf.ID, events.NodeFinished{
		BaseEvent:   events.NewBaseEvent(events.NodeFinishedEvent, wf.ID),
		ExecutionID: execution.ID,
		NodeID:      node.ID,
		DurationMs:  nodeExec.Duration,
		OutputData:  output,
	}, logger)

	return nodeExec, output
}

// retryDelay sleeps between attempts; returns false when the run was
// cancelled during the wait.
func (r *Runner) retryDelay(ctx context.Context, seconds int) bool {
	if seconds <= 0 {
		return true
	}

	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Runner) failRun(ctx context.Context, wf *models.Workflow, execution *models.WorkflowExecution, nodeID string, cause error, logger *slog.Logger) error {
	execution.ErrorMessage = cause.Error()
	execution.Finalize(models.ExecutionStatusFailed)
	execution.AppendLog(models.LogError, "Execution failed", nodeID, map[string]any{"error": cause.Error()})
	r.saveExecution(ctx, execution, logger)

	r.publish(ctx, execution.WorkflowID, events.ExecutionFailed{
		BaseEvent:     events.NewBaseEvent(events.ExecutionFailedEvent, wf.ID),
		ExecutionID:   execution.ID,
		DurationMs:    execution.Duration,
		NodesExecuted: len(execution.NodeExecutions),
		FailedNodeID:  nodeID,
		Error:         cause.Error(),
	}, logger)

	logger.Error("Execution failed", "error", cause)

	return cause
}

func (r *Runner) cancelRun(ctx context.Context, execution *models.WorkflowExecution, logger *slog.Logger) error {
	execution.Finalize(models.ExecutionStatusCancelled)
	execution.AppendLog(models.LogInfo, "Execution cancelled", "", nil)
	r.saveExecution(ctx, execution, logger)

	r.publish(ctx, execution.WorkflowID, events.ExecutionCancelled{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		DurationMs:  execution.Duration,
	}, logger)

	logger.Info("Execution cancelled")

	return nil
}

// saveExecution upserts partial run state. The store keeps working even when
// the run context is already cancelled.
func (r *Runner) saveExecution(ctx context.Context, execution *models.WorkflowExecution, logger *slog.Logger) {
	err := r.executions.Save(context.WithoutCancel(ctx), execution)
	if err != nil {
		logger.Error("Failed to persist execution state", "error", err)
	}
}

func (r *Runner) publish(ctx context.Context, key string, event eventbus.Event, logger *slog.Logger) {
	if r.publisher == nil {
		return
	}

	err := r.publisher.Publish(context.WithoutCancel(ctx), key, event)
	if err != nil {
		logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func copyContext(data map[string]any) map[string]any {
	copied := make(map[string]any, len(data))
	for k, v := range data {
		copied[k] = v
	}

	return copied
}
