package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotActive is returned when execution is requested for a
	// workflow whose status is not active.
	ErrWorkflowNotActive = errors.New("workflow is not active")

	// ErrConcurrencyLimit is returned when a workflow already has its declared
	// number of concurrent executions in flight. The engine rejects rather
	// than queues past the limit.
	ErrConcurrencyLimit = errors.New("workflow concurrency limit reached")

	// ErrValidation is returned when a definition fails structural validation.
	ErrValidation = errors.New("workflow validation failed")
)

// NotActiveError carries the workflow's actual status alongside the sentinel.
type NotActiveError struct {
	WorkflowID string
	Status     string
}

func (e *NotActiveError) Error() string {
	return fmt.Sprintf("workflow %s is not active (status %s)", e.WorkflowID, e.Status)
}

func (e *NotActiveError) Unwrap() error { return ErrWorkflowNotActive }

// ConcurrencyLimitError reports how many executions were already in flight.
type ConcurrencyLimitError struct {
	WorkflowID string
	Limit      int
}

func (e *ConcurrencyLimitError) Error() string {
	return fmt.Sprintf("workflow %s already has %d executions in flight", e.WorkflowID, e.Limit)
}

func (e *ConcurrencyLimitError) Unwrap() error { return ErrConcurrencyLimit }
