// Package events defines event types and structures for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/innospot/autoflow/pkg/models"
)

type EventType string

// Topic is the stream all lifecycle events are published to.
const Topic = "autoflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowTriggeredEvent EventType = "workflow.triggered"

	ExecutionStartedEvent   EventType = "workflow.execution.started"
	ExecutionCompletedEvent EventType = "workflow.execution.completed"
	ExecutionFailedEvent    EventType = "workflow.execution.failed"
	ExecutionCancelledEvent EventType = "workflow.execution.cancelled"

	NodeFinishedEvent EventType = "node.execution.finished"
	NodeFailedEvent   EventType = "node.execution.failed"

	NotificationSentEvent EventType = "notification.sent"
	AlertCreatedEvent     EventType = "alert.created"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

type WorkflowTriggered struct {
	BaseEvent

	TriggerType models.TriggerType `json:"trigger_type"`
	TriggeredBy string             `json:"triggered_by"`
	TriggerData map[string]any     `json:"trigger_data,omitempty"`
}

func (w WorkflowTriggered) GetType() EventType {
	return WorkflowTriggeredEvent
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID  string         `json:"execution_id"`
	WorkflowName string         `json:"workflow_name"`
	TriggerType  string         `json:"trigger_type"`
	InputData    map[string]any `json:"input_data,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string         `json:"execution_id"`
	DurationMs    int64          `json:"duration_ms"`
	NodesExecuted int            `json:"nodes_executed"`
	OutputData    map[string]any `json:"output_data,omitempty"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	DurationMs    int64  `json:"duration_ms"`
	NodesExecuted int    `json:"nodes_executed"`
	FailedNodeID  string `json:"failed_node_id,omitempty"`
	Error         string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	DurationMs  int64  `json:"duration_ms"`
	CancelledBy string `json:"cancelled_by,omitempty"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

type NodeFinished struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	DurationMs  int64          `json:"duration_ms"`
	OutputData  map[string]any `json:"output_data,omitempty"`
}

func (n NodeFinished) GetType() EventType {
	return NodeFinishedEvent
}

type NotificationSent struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Channel     string `json:"channel"`
	Recipient   string `json:"recipient,omitempty"`
	Message     string `json:"message"`
}

func (n NotificationSent) GetType() EventType {
	return NotificationSentEvent
}

type AlertCreated struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	Severity    string         `json:"severity"`
	Message     string         `json:"message"`
	Details     map[string]any `json:"details,omitempty"`
}

func (a AlertCreated) GetType() EventType {
	return AlertCreatedEvent
}

type NodeFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	DurationMs  int64  `json:"duration_ms"`
	RetryCount  int    `json:"retry_count"`
	Error       string `json:"error"`
}

func (n NodeFailed) GetType() EventType {
	return NodeFailedEvent
}
