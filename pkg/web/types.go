package web

import "github.com/innospot/autoflow/pkg/models"

// CreateWorkflowRequest is the POST /workflows payload.
type CreateWorkflowRequest struct {
	Name        string                  `json:"name"        validate:"required,min=3"`
	Description string                  `json:"description"`
	Status      models.WorkflowStatus   `json:"status,omitempty"`
	Priority    models.WorkflowPriority `json:"priority,omitempty"`
	Scope       models.AutomationScope  `json:"scope,omitempty"`
	ProjectID   string                  `json:"project_id,omitempty"`
	SpaceID     string                  `json:"space_id,omitempty"`
	OwnerID     string                  `json:"owner_id,omitempty"`
	Tags        []string                `json:"tags,omitempty"`

	Nodes       []*models.WorkflowNode `json:"nodes,omitempty"`
	Connections []*models.Connection   `json:"connections,omitempty"`
	Variables   []*models.Variable     `json:"variables,omitempty"`

	MaxRetries           int `json:"max_retries,omitempty"`
	RetryDelay           int `json:"retry_delay,omitempty"`
	Timeout              int `json:"timeout,omitempty"`
	ConcurrentExecutions int `json:"concurrent_executions,omitempty"`

	Schedule *models.Schedule `json:"schedule,omitempty"`
}

func (r *CreateWorkflowRequest) toWorkflow() *models.Workflow {
	return &models.Workflow{
		Name:                 r.Name,
		Description:          r.Description,
		Status:               r.Status,
		Priority:             r.Priority,
		Scope:                r.Scope,
		ProjectID:            r.ProjectID,
		SpaceID:              r.SpaceID,
		OwnerID:              r.OwnerID,
		Tags:                 r.Tags,
		Nodes:                r.Nodes,
		Connections:          r.Connections,
		Variables:            r.Variables,
		MaxRetries:           r.MaxRetries,
		RetryDelay:           r.RetryDelay,
		Timeout:              r.Timeout,
		ConcurrentExecutions: r.ConcurrentExecutions,
		Schedule:             r.Schedule,
	}
}

// ExecuteWorkflowRequest is the POST /workflows/:id/execute payload.
type ExecuteWorkflowRequest struct {
	Input       map[string]any `json:"input,omitempty"`
	TriggeredBy string         `json:"triggered_by,omitempty"`
}
