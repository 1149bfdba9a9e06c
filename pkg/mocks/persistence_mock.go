package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/persistence"
)

// MockWorkflowRepository is a mock implementation of the
// persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) List(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.WorkflowListResult), args.Error(1)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockExecutionRepository is a mock implementation of the
// persistence.ExecutionRepository interface.
type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowExecution), args.Error(1)
}

func (m *MockExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	args := m.Called(ctx, workflowID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.ExecutionListResult), args.Error(1)
}

func (m *MockExecutionRepository) ListByDateRange(ctx context.Context, workflowID string, start, end time.Time) ([]*models.WorkflowExecution, error) {
	args := m.Called(ctx, workflowID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowExecution), args.Error(1)
}

func (m *MockExecutionRepository) CountExecutions(ctx context.Context, workflowID string) (int64, error) {
	args := m.Called(ctx, workflowID)

	return args.Get(0).(int64), args.Error(1)
}

// MockDocumentRepository is a mock implementation of the
// persistence.DocumentRepository interface.
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Put(ctx context.Context, collection, key string, value map[string]any) error {
	args := m.Called(ctx, collection, key, value)

	return args.Error(0)
}

func (m *MockDocumentRepository) Get(ctx context.Context, collection, key string) (map[string]any, error) {
	args := m.Called(ctx, collection, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]any), args.Error(1)
}
