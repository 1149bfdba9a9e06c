package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/persistence"
)

// ExecutionRepository stores one JSON file per execution under
// <root>/executions/. Save overwrites, which gives the upsert semantics the
// engine relies on while a run is in flight.
type ExecutionRepository struct {
	root string
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

// Save writes an execution record, creating or replacing it.
func (er *ExecutionRepository) Save(_ context.Context, execution *models.WorkflowExecution) error {
	err := os.MkdirAll(path.Join(er.root, "executions"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	filePath := path.Join(er.root, "executions", execution.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

// GetByID retrieves an execution by its ID.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	filePath := filepath.Clean(path.Join(er.root, "executions", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to read execution %s: %w", id, err)
	}

	var execution models.WorkflowExecution

	err = json.Unmarshal(body, &execution)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

func (er *ExecutionRepository) loadByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	root := os.DirFS(path.Join(er.root, "executions"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.WorkflowExecution, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		executionID := file[:len(file)-len(".json")]

		execution, err := er.GetByID(ctx, executionID)
		if err != nil {
			if persistence.IsExecutionNotFound(err) {
				continue
			}

			return nil, err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	// Newest first.
	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

// ListByWorkflow returns one page of a workflow's executions, newest first.
func (er *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 50
	}

	executions, err := er.loadByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	totalCount := int64(len(executions))

	startIdx := opts.Offset
	if startIdx >= len(executions) {
		return &persistence.ExecutionListResult{
			Executions:  make([]*models.WorkflowExecution, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}, nil
	}

	endIdx := opts.Offset + opts.Limit
	if endIdx > len(executions) {
		endIdx = len(executions)
	}

	return &persistence.ExecutionListResult{
		Executions:  executions[startIdx:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(executions),
	}, nil
}

// ListByDateRange returns a workflow's executions started inside [start, end].
func (er *ExecutionRepository) ListByDateRange(ctx context.Context, workflowID string, start, end time.Time) ([]*models.WorkflowExecution, error) {
	executions, err := er.loadByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	inRange := make([]*models.WorkflowExecution, 0, len(executions))

	for _, execution := range executions {
		if execution.StartedAt.Before(start) || execution.StartedAt.After(end) {
			continue
		}

		inRange = append(inRange, execution)
	}

	return inRange, nil
}

// CountExecutions returns how many executions a workflow has recorded.
func (er *ExecutionRepository) CountExecutions(ctx context.Context, workflowID string) (int64, error) {
	executions, err := er.loadByWorkflow(ctx, workflowID)
	if err != nil {
		return 0, err
	}

	return int64(len(executions)), nil
}
