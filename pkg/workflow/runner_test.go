package workflow

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innospot/autoflow/pkg/mocks"
	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/persistence/file"
	"github.com/innospot/autoflow/pkg/registry"
	"github.com/innospot/autoflow/pkg/testutil"
)

func newTestRunner(t *testing.T) (*Runner, *file.ExecutionRepository) {
	t.Helper()

	logger := slog.Default()
	root := t.TempDir()

	reg := registry.NewRegistry(logger)
	registry.RegisterDefaults(reg, mocks.PublisherStub{}, file.NewDocumentRepository(root))

	executions := file.NewExecutionRepository(root)
	runner := NewRunner(NewExecutor(reg, logger), executions, mocks.PublisherStub{}, logger)

	return runner, executions
}

func newExecution(wf *models.Workflow, input map[string]any) *models.WorkflowExecution {
	return &models.WorkflowExecution{
		ID:          uuid.New().String(),
		WorkflowID:  wf.ID,
		Status:      models.ExecutionStatusPending,
		TriggerType: models.TriggerManual,
		TriggeredBy: "tester",
		StartedAt:   time.Now().UTC(),
		InputData:   input,
	}
}

func TestRun_LinearWorkflowCompletes(t *testing.T) {
	runner, executions := newTestRunner(t)

	trigger := testutil.NewNode(models.NodeTypeTrigger, testutil.WithID("trigger"))
	cond := testutil.NewNode(models.NodeTypeCondition, testutil.WithID("check"),
		testutil.WithConfig(map[string]any{"expression": "{value} > 5"}))
	notify := testutil.NewNode(models.NodeTypeAction, testutil.WithID("notify"),
		testutil.WithConfig(map[string]any{
			"action_type": "send_notification",
			"message":     "value is {value}",
		}))

	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{trigger, cond, notify},
		testutil.WithConnections(
			testutil.Connect("trigger", "check"),
			testutil.Connect("check", "notify"),
		),
	)

	execution := newExecution(wf, map[string]any{"value": float64(10)})

	err := runner.Run(context.Background(), wf, execution)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	require.Len(t, execution.NodeExecutions, 3)

	for _, nodeExec := range execution.NodeExecutions {
		assert.Equal(t, models.NodeStatusCompleted, nodeExec.Status)
		assert.Zero(t, nodeExec.RetryCount)
	}

	assert.Equal(t, true, execution.OutputData["condition_result"])
	assert.Equal(t, "true_output", execution.OutputData["condition_output"])
	assert.Equal(t, "value is 10", execution.OutputData["message"])
	require.NotNil(t, execution.CompletedAt)

	// The terminal record made it to the store.
	stored, err := executions.GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
}

func TestRun_FailingNodeRetriesThreeTimesThenAborts(t *testing.T) {
	runner, _ := newTestRunner(t)

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	webhookNode := testutil.NewNode(models.NodeTypeAction, testutil.WithID("hook"),
		testutil.WithConfig(map[string]any{
			"action_type": "call_webhook",
			"url":         server.URL,
		}))
	never := testutil.NewNode(models.NodeTypeAction, testutil.WithID("never"),
		testutil.WithConfig(map[string]any{
			"action_type": "send_notification",
			"message":     "unreachable",
		}))

	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{webhookNode, never},
		testutil.WithConnections(testutil.Connect("hook", "never")),
	)

	execution := newExecution(wf, nil)

	err := runner.Run(context.Background(), wf, execution)
	require.Error(t, err)
	assert.True(t, IsNodeExecutionError(err))

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.ErrorMessage, "webhook returned status 500")

	// Retry budget of 3 means exactly 3 attempts and retry_count 3.
	assert.Equal(t, int32(3), attempts.Load())
	require.Len(t, execution.NodeExecutions, 1)
	assert.Equal(t, models.NodeStatusFailed, execution.NodeExecutions[0].Status)
	assert.Equal(t, 3, execution.NodeExecutions[0].RetryCount)
}

func TestRun_ContinueOnErrorDoesNotRetryOrAbort(t *testing.T) {
	runner, _ := newTestRunner(t)

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	flaky := testutil.NewNode(models.NodeTypeAction, testutil.WithID("flaky"),
		testutil.WithContinueOnError(),
		testutil.WithConfig(map[string]any{
			"action_type": "call_webhook",
			"url":         server.URL,
		}))
	notify := testutil.NewNode(models.NodeTypeAction, testutil.WithID("notify"),
		testutil.WithConfig(map[string]any{
			"action_type": "send_notification",
			"message":     "still here",
		}))

	wf := testutil.NewWorkflow([]*models.WorkflowNode{flaky, notify})

	execution := newExecution(wf, nil)

	err := runner.Run(context.Background(), wf, execution)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, int32(1), attempts.Load(), "continue_on_error nodes get a single attempt")

	require.Len(t, execution.NodeExecutions, 2)
	assert.Equal(t, models.NodeStatusFailed, execution.NodeExecutions[0].Status)
	assert.Equal(t, 1, execution.NodeExecutions[0].RetryCount)
	assert.Equal(t, models.NodeStatusCompleted, execution.NodeExecutions[1].Status)

	// Failed node output never merges into the data context.
	assert.NotContains(t, execution.OutputData, "webhook_called")
}

func TestRun_GuardedConnectionsPruneUntakenBranch(t *testing.T) {
	runner, _ := newTestRunner(t)

	trigger := testutil.NewNode(models.NodeTypeTrigger, testutil.WithID("trigger"))
	cond := testutil.NewNode(models.NodeTypeCondition, testutil.WithID("check"),
		testutil.WithConfig(map[string]any{"expression": "{value} > 5"}))
	yes := testutil.NewNode(models.NodeTypeAction, testutil.WithID("yes"),
		testutil.WithConfig(map[string]any{"action_type": "send_notification", "message": "yes"}))
	no := testutil.NewNode(models.NodeTypeAction, testutil.WithID("no"),
		testutil.WithConfig(map[string]any{"action_type": "send_notification", "message": "no"}))

	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{trigger, cond, yes, no},
		testutil.WithConnections(
			testutil.Connect("trigger", "check"),
			testutil.ConnectIf("check", "yes", "{condition_result}"),
			testutil.ConnectIf("check", "no", "!{condition_result}"),
		),
	)

	execution := newExecution(wf, map[string]any{"value": float64(2)})

	err := runner.Run(context.Background(), wf, execution)
	require.NoError(t, err)

	executed := make([]string, 0, len(execution.NodeExecutions))
	for _, nodeExec := range execution.NodeExecutions {
		executed = append(executed, nodeExec.NodeID)
	}

	assert.Equal(t, []string{"trigger", "check", "no"}, executed)
	assert.Equal(t, "no", execution.OutputData["message"])
}

func TestRun_MalformedGuardFailsClosed(t *testing.T) {
	runner, _ := newTestRunner(t)

	trigger := testutil.NewNode(models.NodeTypeTrigger, testutil.WithID("trigger"))
	target := testutil.NewNode(models.NodeTypeAction, testutil.WithID("target"),
		testutil.WithConfig(map[string]any{"action_type": "send_notification", "message": "hi"}))

	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{trigger, target},
		testutil.WithConnections(testutil.ConnectIf("trigger", "target", "{undefined_var} > 1")),
	)

	execution := newExecution(wf, nil)

	err := runner.Run(context.Background(), wf, execution)
	require.NoError(t, err)

	// The run completes; the guarded target never activates.
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	require.Len(t, execution.NodeExecutions, 1)
	assert.Equal(t, "trigger", execution.NodeExecutions[0].NodeID)
}

func TestRun_DisabledNodeSkipped(t *testing.T) {
	runner, _ := newTestRunner(t)

	wf := testutil.NewWorkflow([]*models.WorkflowNode{
		testutil.NewNode(models.NodeTypeTrigger, testutil.WithID("trigger")),
		testutil.NewNode(models.NodeTypeAction, testutil.WithID("off"),
			testutil.Disabled(),
			testutil.WithConfig(map[string]any{"action_type": "send_notification", "message": "hi"})),
	})

	execution := newExecution(wf, nil)

	err := runner.Run(context.Background(), wf, execution)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	require.Len(t, execution.NodeExecutions, 1)
	assert.Equal(t, "trigger", execution.NodeExecutions[0].NodeID)
}

func TestRun_CancelledContextFinalizesAsCancelled(t *testing.T) {
	runner, executions := newTestRunner(t)

	wf := testutil.NewWorkflow([]*models.WorkflowNode{
		testutil.NewNode(models.NodeTypeTrigger, testutil.WithID("trigger")),
	})

	execution := newExecution(wf, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.Run(ctx, wf, execution)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, execution.Status)

	stored, err := executions.GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, stored.Status)
}

func TestRun_CancelDuringDelayNodeFinalizesAsCancelled(t *testing.T) {
	runner, executions := newTestRunner(t)

	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{
			testutil.NewNode(models.NodeTypeTrigger, testutil.WithID("trigger")),
			testutil.NewNode(models.NodeTypeDelay, testutil.WithID("wait"),
				testutil.WithConfig(map[string]any{"delay_seconds": float64(30)})),
		},
		testutil.WithConnections(testutil.Connect("trigger", "wait")),
	)

	execution := newExecution(wf, nil)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()

	err := runner.Run(ctx, wf, execution)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	// Cancelling mid-node is a cancellation, never a failure.
	assert.Equal(t, models.ExecutionStatusCancelled, execution.Status)
	assert.Empty(t, execution.ErrorMessage)

	require.Len(t, execution.NodeExecutions, 2)
	assert.Equal(t, models.NodeStatusFailed, execution.NodeExecutions[1].Status)

	stored, err := executions.GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, stored.Status)
}

func TestRun_InvalidGraphFailsRun(t *testing.T) {
	runner, _ := newTestRunner(t)

	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{
			testutil.NewNode(models.NodeTypeAction, testutil.WithID("a"),
				testutil.WithConfig(map[string]any{"action_type": "send_notification", "message": "x"})),
		},
		testutil.WithConnections(testutil.Connect("a", "a")),
	)

	execution := newExecution(wf, nil)

	err := runner.Run(context.Background(), wf, execution)
	require.Error(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
}

func TestRun_WebhookActionCountsAPICall(t *testing.T) {
	runner, _ := newTestRunner(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	wf := testutil.NewWorkflow([]*models.WorkflowNode{
		testutil.NewNode(models.NodeTypeAction, testutil.WithID("hook"),
			testutil.WithConfig(map[string]any{
				"action_type": "call_webhook",
				"url":         server.URL,
			})),
	})

	execution := newExecution(wf, nil)

	err := runner.Run(context.Background(), wf, execution)
	require.NoError(t, err)
	assert.Equal(t, 1, execution.ResourceUsage.APICalls)
	assert.Equal(t, true, execution.OutputData["webhook_called"])
}
