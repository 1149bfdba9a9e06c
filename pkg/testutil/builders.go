// Package testutil provides test data builders shared across package tests.
package testutil

import (
	"github.com/google/uuid"

	"github.com/innospot/autoflow/pkg/models"
)

// NewNode creates a WorkflowNode with sensible defaults that overrides can
// adjust.
func NewNode(nodeType models.NodeType, overrides ...func(*models.WorkflowNode)) *models.WorkflowNode {
	node := &models.WorkflowNode{
		ID:      uuid.New().String(),
		Type:    nodeType,
		Name:    "Test " + string(nodeType),
		Enabled: true,
		Config:  map[string]any{},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node id.
func WithID(id string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.ID = id
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Config = config
	}
}

// WithContinueOnError marks the node as non-fatal on failure.
func WithContinueOnError() func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.ContinueOnError = true
	}
}

// Disabled marks the node as disabled.
func Disabled() func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Enabled = false
	}
}

// NewWorkflow creates an active workflow holding the given nodes, with no
// connections. Callers append connections for graph-shaped definitions.
func NewWorkflow(nodes []*models.WorkflowNode, overrides ...func(*models.Workflow)) *models.Workflow {
	wf := &models.Workflow{
		ID:      uuid.New().String(),
		Name:    "Test Workflow",
		Status:  models.WorkflowStatusActive,
		OwnerID: "tester",
		Version: 1,
		Nodes:   nodes,
	}

	for _, override := range overrides {
		override(wf)
	}

	return wf
}

// WithConnections sets the workflow connections.
func WithConnections(connections ...*models.Connection) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Connections = connections
	}
}

// WithStatus sets the workflow status.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// Connect builds an unguarded connection between two nodes.
func Connect(sourceID, targetID string) *models.Connection {
	return &models.Connection{
		ID:           uuid.New().String(),
		SourceNodeID: sourceID,
		TargetNodeID: targetID,
	}
}

// ConnectIf builds a guarded connection that only activates the target when
// the condition holds against the execution data.
func ConnectIf(sourceID, targetID, condition string) *models.Connection {
	return &models.Connection{
		ID:           uuid.New().String(),
		SourceNodeID: sourceID,
		TargetNodeID: targetID,
		Condition:    condition,
	}
}
