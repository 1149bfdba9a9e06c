package models

import "time"

// Period is the wall-clock window an analytics report covers.
type Period struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// NodePerformance summarizes how one node behaved across executions.
type NodePerformance struct {
	NodeID          string  `json:"node_id"`
	NodeName        string  `json:"node_name,omitempty"`
	Executions      int     `json:"executions"`
	AverageDuration float64 `json:"average_duration"` // milliseconds
	SuccessRate     float64 `json:"success_rate"`     // percentage
	ErrorCount      int     `json:"error_count"`
}

// Analytics aggregates a workflow's execution history over a time window.
type Analytics struct {
	WorkflowID string `json:"workflow_id"`
	Period     Period `json:"period"`

	TotalExecutions      int     `json:"total_executions"`
	SuccessfulExecutions int     `json:"successful_executions"`
	FailedExecutions     int     `json:"failed_executions"`
	AverageDuration      float64 `json:"average_duration"` // milliseconds

	Throughput float64 `json:"throughput"` // executions per hour
	ErrorRate  float64 `json:"error_rate"` // percentage

	ResourceUsage   ResourceUsage      `json:"resource_usage"`
	NodePerformance []*NodePerformance `json:"node_performance"`
}
