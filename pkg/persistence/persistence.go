// Package persistence provides the data storage abstraction for workflows
// and their execution history.
package persistence

import (
	"context"
	"time"

	"github.com/innospot/autoflow/pkg/models"
)

// Persistence is the durable store contract the engine depends on.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	DocumentRepository() DocumentRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListWorkflowsOptions filters and pages workflow listings.
type ListWorkflowsOptions struct {
	Limit   int
	Offset  int
	OwnerID string
	Scope   models.AutomationScope
	Status  *models.WorkflowStatus

	SortBy    string // created_at, updated_at, name
	SortOrder string // asc, desc
}

// WorkflowListResult is one page of workflows.
type WorkflowListResult struct {
	Workflows   []*models.Workflow `json:"workflows"`
	TotalCount  int64              `json:"total_count"`
	HasNextPage bool               `json:"has_next_page"`
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	List(ctx context.Context, opts ListWorkflowsOptions) (*WorkflowListResult, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// ListExecutionsOptions pages execution listings; newest first.
type ListExecutionsOptions struct {
	Limit  int
	Offset int
}

// ExecutionListResult is one page of executions.
type ExecutionListResult struct {
	Executions  []*models.WorkflowExecution `json:"executions"`
	TotalCount  int64                       `json:"total_count"`
	HasNextPage bool                        `json:"has_next_page"`
}

// ExecutionRepository stores execution records. Save has upsert semantics:
// the engine writes partial state several times during a run.
type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	ListByWorkflow(ctx context.Context, workflowID string, opts ListExecutionsOptions) (*ExecutionListResult, error)
	ListByDateRange(ctx context.Context, workflowID string, start, end time.Time) ([]*models.WorkflowExecution, error)
	CountExecutions(ctx context.Context, workflowID string) (int64, error)
}

// DocumentRepository is a small key/value document store backing the
// update_store action.
type DocumentRepository interface {
	Put(ctx context.Context, collection, key string, document map[string]any) error
	Get(ctx context.Context, collection, key string) (map[string]any, error)
}
