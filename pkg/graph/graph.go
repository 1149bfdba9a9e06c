// Package graph validates workflow node graphs and resolves execution order
// over their connections.
package graph

import (
	"errors"
	"fmt"

	"github.com/innospot/autoflow/pkg/models"
)

// Validation failures, all wrapped by *Error.
var (
	ErrNoNodes         = errors.New("workflow has no nodes")
	ErrDuplicateNodeID = errors.New("duplicate node id")
	ErrUnknownNode     = errors.New("connection references unknown node")
	ErrUnknownPort     = errors.New("connection references unknown port")
	ErrSelfLoop        = errors.New("connection loops a node back to itself")
	ErrCycle           = errors.New("workflow graph contains a cycle")
)

// Error reports an invalid node/connection structure.
type Error struct {
	WorkflowID string
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid graph for workflow %s: %v (%s)", e.WorkflowID, e.Err, e.Detail)
	}

	return fmt.Sprintf("invalid graph for workflow %s: %v", e.WorkflowID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsGraphError reports whether err is a graph validation failure.
func IsGraphError(err error) bool {
	var ge *Error

	return errors.As(err, &ge)
}

// Graph is a validated adjacency view over a workflow's nodes and
// connections. It holds no execution state.
type Graph struct {
	workflow *models.Workflow
	nodes    map[string]*models.WorkflowNode
	outgoing map[string][]*models.Connection
	incoming map[string]int
}

// New builds and validates the graph for a workflow. The returned error is a
// *Error describing the first violation found.
func New(workflow *models.Workflow) (*Graph, error) {
	fail := func(detail string, err error) (*Graph, error) {
		return nil, &Error{WorkflowID: workflow.ID, Detail: detail, Err: err}
	}

	if len(workflow.Nodes) == 0 && workflow.Status != models.WorkflowStatusDraft {
		return fail("", ErrNoNodes)
	}

	g := &Graph{
		workflow: workflow,
		nodes:    make(map[string]*models.WorkflowNode, len(workflow.Nodes)),
		outgoing: make(map[string][]*models.Connection),
		incoming: make(map[string]int),
	}

	for _, node := range workflow.Nodes {
		if _, dup := g.nodes[node.ID]; dup {
			return fail(node.ID, ErrDuplicateNodeID)
		}

		g.nodes[node.ID] = node
	}

	for _, conn := range workflow.Connections {
		source, ok := g.nodes[conn.SourceNodeID]
		if !ok {
			return fail(conn.SourceNodeID, ErrUnknownNode)
		}

		target, ok := g.nodes[conn.TargetNodeID]
		if !ok {
			return fail(conn.TargetNodeID, ErrUnknownNode)
		}

		if conn.SourceNodeID == conn.TargetNodeID {
			return fail(conn.SourceNodeID, ErrSelfLoop)
		}

		if conn.SourcePortID != "" && !hasPort(source.Outputs, conn.SourcePortID) {
			return fail(conn.SourcePortID, ErrUnknownPort)
		}

		if conn.TargetPortID != "" && !hasPort(target.Inputs, conn.TargetPortID) {
			return fail(conn.TargetPortID, ErrUnknownPort)
		}

		g.outgoing[conn.SourceNodeID] = append(g.outgoing[conn.SourceNodeID], conn)
		g.incoming[conn.TargetNodeID]++
	}

	if len(workflow.Connections) > 0 {
		if _, err := g.topologicalOrder(); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Validate checks a workflow's graph structure without keeping the graph.
func Validate(workflow *models.Workflow) error {
	_, err := New(workflow)

	return err
}

func hasPort(ports []*models.Port, id string) bool {
	for _, p := range ports {
		if p.ID == id {
			return true
		}
	}

	return false
}

// HasConnections reports whether the workflow declares any edges. Flat
// workflows without edges run in definition order.
func (g *Graph) HasConnections() bool {
	return len(g.workflow.Connections) > 0
}

// Entries returns the nodes with no incoming connections, in definition
// order. These are the starting points of a run.
func (g *Graph) Entries() []*models.WorkflowNode {
	var entries []*models.WorkflowNode

	for _, node := range g.workflow.Nodes {
		if g.incoming[node.ID] == 0 {
			entries = append(entries, node)
		}
	}

	return entries
}

// Outgoing returns the connections leaving a node, in declaration order.
func (g *Graph) Outgoing(nodeID string) []*models.Connection {
	return g.outgoing[nodeID]
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *models.WorkflowNode {
	return g.nodes[id]
}

// Order returns the nodes in execution order: topological order following
// connections when edges exist, definition order otherwise.
func (g *Graph) Order() ([]*models.WorkflowNode, error) {
	if !g.HasConnections() {
		return g.workflow.Nodes, nil
	}

	return g.topologicalOrder()
}

// topologicalOrder is Kahn's algorithm; ties break in definition order so
// the walk is deterministic.
func (g *Graph) topologicalOrder() ([]*models.WorkflowNode, error) {
	indegree := make(map[string]int, len(g.nodes))
	for id, n := range g.incoming {
		indegree[id] = n
	}

	var queue []*models.WorkflowNode

	for _, node := range g.workflow.Nodes {
		if indegree[node.ID] == 0 {
			queue = append(queue, node)
		}
	}

	order := make([]*models.WorkflowNode, 0, len(g.workflow.Nodes))

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, conn := range g.outgoing[node.ID] {
			indegree[conn.TargetNodeID]--
			if indegree[conn.TargetNodeID] == 0 {
				queue = append(queue, g.nodes[conn.TargetNodeID])
			}
		}
	}

	if len(order) != len(g.workflow.Nodes) {
		return nil, &Error{WorkflowID: g.workflow.ID, Err: ErrCycle}
	}

	return order, nil
}
