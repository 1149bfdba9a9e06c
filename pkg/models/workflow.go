// Package models defines the core domain models for node-based workflow automation.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft     WorkflowStatus = "draft"     // Editable, not executable
	WorkflowStatusActive    WorkflowStatus = "active"    // Executable, schedulable
	WorkflowStatusPaused    WorkflowStatus = "paused"    // Temporarily not executable
	WorkflowStatusCompleted WorkflowStatus = "completed" // Finished its purpose
	WorkflowStatusFailed    WorkflowStatus = "failed"    // Marked failed by an operator
	WorkflowStatusArchived  WorkflowStatus = "archived"  // Retired, kept for execution history
)

// WorkflowPriority orders workflows for operators; it does not affect dispatch.
type WorkflowPriority string

const (
	PriorityLow      WorkflowPriority = "low"
	PriorityMedium   WorkflowPriority = "medium"
	PriorityHigh     WorkflowPriority = "high"
	PriorityCritical WorkflowPriority = "critical"
)

// AutomationScope determines where a workflow is visible and who may run it.
type AutomationScope string

const (
	ScopeGlobal  AutomationScope = "global"
	ScopeProject AutomationScope = "project"
	ScopeSpace   AutomationScope = "space"
	ScopeUser    AutomationScope = "user"
)

// Workflow represents a named, versioned automation definition: a node graph
// plus execution policy, scheduling, and cumulative counters.
type Workflow struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"        validate:"required,min=3"`
	Description string           `json:"description"`
	Status      WorkflowStatus   `json:"status"      validate:"required"`
	Priority    WorkflowPriority `json:"priority,omitempty"`
	Scope       AutomationScope  `json:"scope,omitempty"`
	ProjectID   string           `json:"project_id,omitempty"`
	SpaceID     string           `json:"space_id,omitempty"`
	OwnerID     string           `json:"owner_id"`
	Tags        []string         `json:"tags,omitempty"`
	Version     int              `json:"version"`

	Nodes       []*WorkflowNode `json:"nodes"`
	Connections []*Connection   `json:"connections"`
	Variables   []*Variable     `json:"variables,omitempty"`

	// Execution policy.
	MaxRetries           int `json:"max_retries"`
	RetryDelay           int `json:"retry_delay"`           // seconds between retry attempts
	Timeout              int `json:"timeout"`               // seconds, 0 means no limit
	ConcurrentExecutions int `json:"concurrent_executions"` // 0 means unlimited

	Schedule *Schedule `json:"schedule,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`
	ExecutionCount int        `json:"execution_count"`
	SuccessCount   int        `json:"success_count"`
	FailureCount   int        `json:"failure_count"`
}

// IsActive reports whether the workflow may be executed.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *WorkflowNode {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// VariableContext returns the workflow variables as a name -> value map,
// suitable for seeding an execution's data context.
func (w *Workflow) VariableContext() map[string]any {
	vars := make(map[string]any, len(w.Variables))
	for _, v := range w.Variables {
		vars[v.Name] = v.Value
	}

	return vars
}
