// Package analytics aggregates execution history into per-workflow reports.
package analytics

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/persistence"
)

type Aggregator struct {
	executions persistence.ExecutionRepository
	logger     *slog.Logger
}

func NewAggregator(executions persistence.ExecutionRepository, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		executions: executions,
		logger:     logger.With("module", "analytics"),
	}
}

// Compute builds the analytics report for one workflow over [start, end].
// Every ratio guards its zero denominator: an empty window yields zeroes,
// never NaN.
func (a *Aggregator) Compute(ctx context.Context, workflowID string, start, end time.Time) (*models.Analytics, error) {
	executions, err := a.executions.ListByDateRange(ctx, workflowID, start, end)
	if err != nil {
		return nil, err
	}

	report := &models.Analytics{
		WorkflowID: workflowID,
		Period:     models.Period{StartDate: start, EndDate: end},
	}

	var (
		durationSum   int64
		durationCount int
	)

	nodeStats := make(map[string]*models.NodePerformance)
	nodeDurations := make(map[string]int64)

	for _, execution := range executions {
		report.TotalExecutions++

		switch execution.Status {
		case models.ExecutionStatusCompleted:
			report.SuccessfulExecutions++
		case models.ExecutionStatusFailed:
			report.FailedExecutions++
		}

		// Only finished executions carry a duration.
		if execution.Duration > 0 {
			durationSum += execution.Duration
			durationCount++
		}

		report.ResourceUsage.APICalls += execution.ResourceUsage.APICalls
		report.ResourceUsage.ExecutionTime += execution.ResourceUsage.ExecutionTime
		report.ResourceUsage.StorageUsed += execution.ResourceUsage.StorageUsed

		for _, nodeExec := range execution.NodeExecutions {
			stats, ok := nodeStats[nodeExec.NodeID]
			if !ok {
				stats = &models.NodePerformance{NodeID: nodeExec.NodeID}
				nodeStats[nodeExec.NodeID] = stats
			}

			stats.Executions++
			nodeDurations[nodeExec.NodeID] += nodeExec.Duration

			if nodeExec.Status == models.NodeStatusFailed {
				stats.ErrorCount++
			}
		}
	}

	if durationCount > 0 {
		report.AverageDuration = float64(durationSum) / float64(durationCount)
	}

	if spanHours := end.Sub(start).Hours(); spanHours > 0 {
		report.Throughput = float64(report.TotalExecutions) / spanHours
	}

	if report.TotalExecutions > 0 {
		report.ErrorRate = float64(report.FailedExecutions) / float64(report.TotalExecutions) * 100
	}

	for nodeID, stats := range nodeStats {
		if stats.Executions > 0 {
			stats.AverageDuration = float64(nodeDurations[nodeID]) / float64(stats.Executions)
			stats.SuccessRate = float64(stats.Executions-stats.ErrorCount) / float64(stats.Executions) * 100
		}

		report.NodePerformance = append(report.NodePerformance, stats)
	}

	sort.Slice(report.NodePerformance, func(i, j int) bool {
		return report.NodePerformance[i].NodeID < report.NodePerformance[j].NodeID
	})

	a.logger.Debug("Analytics computed",
		"workflow_id", workflowID, "executions", report.TotalExecutions)

	return report, nil
}
