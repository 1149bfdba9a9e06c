package analytics

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/persistence/file"
)

func saveExecution(t *testing.T, repo *file.ExecutionRepository, workflowID string, status models.ExecutionStatus, startedAt time.Time, duration int64, nodes []*models.NodeExecution) {
	t.Helper()

	err := repo.Save(context.Background(), &models.WorkflowExecution{
		ID:             uuid.New().String(),
		WorkflowID:     workflowID,
		Status:         status,
		StartedAt:      startedAt,
		Duration:       duration,
		NodeExecutions: nodes,
		ResourceUsage:  models.ResourceUsage{APICalls: 2, ExecutionTime: duration},
	})
	require.NoError(t, err)
}

func TestCompute_EmptyWindowYieldsZeroes(t *testing.T) {
	repo := file.NewExecutionRepository(t.TempDir())
	aggregator := NewAggregator(repo, slog.Default())

	end := time.Now().UTC()
	start := end.Add(-24 * time.Hour)

	report, err := aggregator.Compute(context.Background(), "wf-1", start, end)
	require.NoError(t, err)

	assert.Zero(t, report.TotalExecutions)
	assert.Zero(t, report.AverageDuration)
	assert.Zero(t, report.Throughput)
	assert.Zero(t, report.ErrorRate)
	assert.Empty(t, report.NodePerformance)
}

func TestCompute_ZeroLengthPeriodGuardsThroughput(t *testing.T) {
	repo := file.NewExecutionRepository(t.TempDir())
	aggregator := NewAggregator(repo, slog.Default())

	at := time.Now().UTC()
	saveExecution(t, repo, "wf-1", models.ExecutionStatusCompleted, at, 100, nil)

	report, err := aggregator.Compute(context.Background(), "wf-1", at, at)
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalExecutions)
	assert.Zero(t, report.Throughput, "zero-length window must not divide by zero")
}

func TestCompute_AggregatesMixedOutcomes(t *testing.T) {
	repo := file.NewExecutionRepository(t.TempDir())
	aggregator := NewAggregator(repo, slog.Default())

	end := time.Now().UTC()
	start := end.Add(-2 * time.Hour)
	inside := end.Add(-time.Hour)

	nodes := func(status models.NodeExecutionStatus, duration int64) []*models.NodeExecution {
		return []*models.NodeExecution{{NodeID: "step", Status: status, Duration: duration}}
	}

	saveExecution(t, repo, "wf-1", models.ExecutionStatusCompleted, inside, 100,
		nodes(models.NodeStatusCompleted, 40))
	saveExecution(t, repo, "wf-1", models.ExecutionStatusCompleted, inside, 300,
		nodes(models.NodeStatusCompleted, 60))
	saveExecution(t, repo, "wf-1", models.ExecutionStatusFailed, inside, 200,
		nodes(models.NodeStatusFailed, 20))

	// Outside the window and for other workflows: ignored.
	saveExecution(t, repo, "wf-1", models.ExecutionStatusCompleted, end.Add(-3*time.Hour), 999, nil)
	saveExecution(t, repo, "wf-2", models.ExecutionStatusCompleted, inside, 999, nil)

	report, err := aggregator.Compute(context.Background(), "wf-1", start, end)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalExecutions)
	assert.Equal(t, 2, report.SuccessfulExecutions)
	assert.Equal(t, 1, report.FailedExecutions)
	assert.InDelta(t, 200.0, report.AverageDuration, 0.001)
	assert.InDelta(t, 1.5, report.Throughput, 0.001)
	assert.InDelta(t, 100.0/3.0, report.ErrorRate, 0.001)
	assert.Equal(t, 6, report.ResourceUsage.APICalls)

	require.Len(t, report.NodePerformance, 1)
	step := report.NodePerformance[0]
	assert.Equal(t, "step", step.NodeID)
	assert.Equal(t, 3, step.Executions)
	assert.Equal(t, 1, step.ErrorCount)
	assert.InDelta(t, 40.0, step.AverageDuration, 0.001)
	assert.InDelta(t, 100.0*2.0/3.0, step.SuccessRate, 0.001)
}

func TestCompute_RunningExecutionsExcludedFromDurationAverage(t *testing.T) {
	repo := file.NewExecutionRepository(t.TempDir())
	aggregator := NewAggregator(repo, slog.Default())

	end := time.Now().UTC()
	start := end.Add(-time.Hour)
	inside := end.Add(-30 * time.Minute)

	saveExecution(t, repo, "wf-1", models.ExecutionStatusCompleted, inside, 100, nil)
	saveExecution(t, repo, "wf-1", models.ExecutionStatusRunning, inside, 0, nil)

	report, err := aggregator.Compute(context.Background(), "wf-1", start, end)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalExecutions)
	assert.Equal(t, 1, report.SuccessfulExecutions)
	assert.InDelta(t, 100.0, report.AverageDuration, 0.001, "running executions carry no duration")
}
