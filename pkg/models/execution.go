package models

import (
	"sync"
	"time"
)

// ExecutionStatus is the run state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether the status can no longer change.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// TriggerType records what caused an execution.
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerScheduled TriggerType = "scheduled"
	TriggerEvent     TriggerType = "event"
	TriggerWebhook   TriggerType = "webhook"
	TriggerCondition TriggerType = "condition"
)

// NodeExecutionStatus is the run state of a single node step.
type NodeExecutionStatus string

const (
	NodeStatusPending   NodeExecutionStatus = "pending"
	NodeStatusRunning   NodeExecutionStatus = "running"
	NodeStatusCompleted NodeExecutionStatus = "completed"
	NodeStatusFailed    NodeExecutionStatus = "failed"
	NodeStatusSkipped   NodeExecutionStatus = "skipped"
)

// NodeExecution is the per-node record of one run. It is never mutated after
// the owning node finishes.
type NodeExecution struct {
	NodeID       string              `json:"node_id"`
	Status       NodeExecutionStatus `json:"status"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	Duration     int64               `json:"duration,omitempty"` // milliseconds
	InputData    map[string]any      `json:"input_data"`
	OutputData   map[string]any      `json:"output_data,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
	RetryCount   int                 `json:"retry_count"`
}

// LogLevel is the severity of an execution log entry.
type LogLevel string

const (
	LogDebug   LogLevel = "debug"
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// ExecutionLogEntry is one line of an execution's append-only log.
type ExecutionLogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     LogLevel       `json:"level"`
	Message   string         `json:"message"`
	NodeID    string         `json:"node_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ResourceUsage is a coarse accounting snapshot for one execution.
type ResourceUsage struct {
	CPUUsage      float64 `json:"cpu_usage"`      // percentage
	MemoryUsage   float64 `json:"memory_usage"`   // MB
	ExecutionTime int64   `json:"execution_time"` // milliseconds
	APICalls      int     `json:"api_calls"`
	StorageUsed   float64 `json:"storage_used"` // MB
}

// WorkflowExecution is one concrete run of a workflow. It is owned by the
// engine while active and handed to the durable store once terminal.
type WorkflowExecution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	Status      ExecutionStatus `json:"status"`
	TriggerType TriggerType     `json:"trigger_type"`
	TriggeredBy string          `json:"triggered_by"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Duration    int64           `json:"duration,omitempty"` // milliseconds

	InputData    map[string]any `json:"input_data"`
	OutputData   map[string]any `json:"output_data,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`

	NodeExecutions []*NodeExecution     `json:"node_executions"`
	ExecutionLog   []*ExecutionLogEntry `json:"execution_log"`
	ResourceUsage  ResourceUsage        `json:"resource_usage"`

	logMu sync.Mutex
}

// AppendLog adds an entry to the execution log. Safe for concurrent use; the
// log is append-only.
func (e *WorkflowExecution) AppendLog(level LogLevel, message, nodeID string, data map[string]any) {
	entry := &ExecutionLogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		NodeID:    nodeID,
		Data:      data,
	}

	e.logMu.Lock()
	e.ExecutionLog = append(e.ExecutionLog, entry)
	e.logMu.Unlock()
}

// Finalize stamps the terminal status, completion time, and duration.
func (e *WorkflowExecution) Finalize(status ExecutionStatus) {
	now := time.Now().UTC()
	e.Status = status
	e.CompletedAt = &now
	e.Duration = now.Sub(e.StartedAt).Milliseconds()
	e.ResourceUsage.ExecutionTime = e.Duration
}
