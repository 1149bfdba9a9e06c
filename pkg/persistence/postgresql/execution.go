package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/persistence"
)

// ExecutionRepository handles execution-related database operations. The full
// record lives in the JSONB column; workflow_id, status and started_at are
// duplicated into scalar columns so listings stay index-driven.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// Save upserts an execution record.
func (er *ExecutionRepository) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	record, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	query := `
		INSERT INTO workflow_executions (id, workflow_id, status, started_at, record)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			record = EXCLUDED.record
	`

	_, err = er.db.ExecContext(ctx, query,
		execution.ID, execution.WorkflowID, string(execution.Status), execution.StartedAt, record,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	return nil
}

// GetByID retrieves an execution by its ID.
func (er *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	var record []byte

	err := er.db.QueryRowContext(ctx, "SELECT record FROM workflow_executions WHERE id = $1", id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query execution %s: %w", id, err)
	}

	var execution models.WorkflowExecution

	err = json.Unmarshal(record, &execution)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

func (er *ExecutionRepository) scanExecutions(ctx context.Context, query string, args ...any) ([]*models.WorkflowExecution, error) {
	rows, err := er.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			er.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		var record []byte

		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan execution row: %w", err)
		}

		var execution models.WorkflowExecution

		if err := json.Unmarshal(record, &execution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
		}

		executions = append(executions, &execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate execution rows: %w", err)
	}

	return executions, nil
}

// ListByWorkflow returns one page of a workflow's executions, newest first.
func (er *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 50
	}

	totalCount, err := er.CountExecutions(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT record FROM workflow_executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`

	executions, err := er.scanExecutions(ctx, query, workflowID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}

	return &persistence.ExecutionListResult{
		Executions:  executions,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(executions)) < totalCount,
	}, nil
}

// ListByDateRange returns a workflow's executions started inside [start, end].
func (er *ExecutionRepository) ListByDateRange(ctx context.Context, workflowID string, start, end time.Time) ([]*models.WorkflowExecution, error) {
	query := `
		SELECT record FROM workflow_executions
		WHERE workflow_id = $1 AND started_at >= $2 AND started_at <= $3
		ORDER BY started_at DESC
	`

	return er.scanExecutions(ctx, query, workflowID, start, end)
}

// CountExecutions returns how many executions a workflow has recorded.
func (er *ExecutionRepository) CountExecutions(ctx context.Context, workflowID string) (int64, error) {
	var count int64

	err := er.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflow_executions WHERE workflow_id = $1", workflowID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count executions for workflow %s: %w", workflowID, err)
	}

	return count, nil
}
