package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innospot/autoflow/pkg/models"
	"github.com/innospot/autoflow/pkg/testutil"
)

func TestNew_ValidLinearGraph(t *testing.T) {
	trigger := testutil.NewNode(models.NodeTypeTrigger, testutil.WithID("trigger"))
	action := testutil.NewNode(models.NodeTypeAction, testutil.WithID("action"))

	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{trigger, action},
		testutil.WithConnections(testutil.Connect("trigger", "action")),
	)

	g, err := New(wf)
	require.NoError(t, err)
	assert.True(t, g.HasConnections())

	entries := g.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "trigger", entries[0].ID)
}

func TestNew_NoNodes(t *testing.T) {
	wf := testutil.NewWorkflow(nil)

	err := Validate(wf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoNodes)
	assert.True(t, IsGraphError(err))
}

func TestNew_NoNodesAllowedForDraft(t *testing.T) {
	wf := testutil.NewWorkflow(nil, testutil.WithStatus(models.WorkflowStatusDraft))

	assert.NoError(t, Validate(wf))
}

func TestNew_DuplicateNodeID(t *testing.T) {
	wf := testutil.NewWorkflow([]*models.WorkflowNode{
		testutil.NewNode(models.NodeTypeTrigger, testutil.WithID("dup")),
		testutil.NewNode(models.NodeTypeAction, testutil.WithID("dup")),
	})

	err := Validate(wf)
	assert.ErrorIs(t, err, ErrDuplicateNodeID)
}

func TestNew_UnknownConnectionEndpoint(t *testing.T) {
	trigger := testutil.NewNode(models.NodeTypeTrigger, testutil.WithID("trigger"))

	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{trigger},
		testutil.WithConnections(testutil.Connect("trigger", "ghost")),
	)

	err := Validate(wf)
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestNew_SelfLoop(t *testing.T) {
	node := testutil.NewNode(models.NodeTypeAction, testutil.WithID("a"))

	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{node},
		testutil.WithConnections(testutil.Connect("a", "a")),
	)

	err := Validate(wf)
	assert.ErrorIs(t, err, ErrSelfLoop)
}

func TestNew_Cycle(t *testing.T) {
	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{
			testutil.NewNode(models.NodeTypeAction, testutil.WithID("a")),
			testutil.NewNode(models.NodeTypeAction, testutil.WithID("b")),
			testutil.NewNode(models.NodeTypeAction, testutil.WithID("c")),
		},
		testutil.WithConnections(
			testutil.Connect("a", "b"),
			testutil.Connect("b", "c"),
			testutil.Connect("c", "a"),
		),
	)

	err := Validate(wf)
	assert.ErrorIs(t, err, ErrCycle)
	assert.True(t, IsGraphError(err))
}

func TestNew_UnknownPort(t *testing.T) {
	source := testutil.NewNode(models.NodeTypeTrigger, testutil.WithID("source"))
	source.Outputs = []*models.Port{{ID: "out", Direction: models.PortDirectionOutput}}
	target := testutil.NewNode(models.NodeTypeAction, testutil.WithID("target"))

	conn := testutil.Connect("source", "target")
	conn.SourcePortID = "nope"

	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{source, target},
		testutil.WithConnections(conn),
	)

	err := Validate(wf)
	assert.ErrorIs(t, err, ErrUnknownPort)
}

func TestOrder_TopologicalWithDeterministicTies(t *testing.T) {
	// Diamond: trigger -> (left, right) -> merge. Definition order breaks the
	// left/right tie.
	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{
			testutil.NewNode(models.NodeTypeTrigger, testutil.WithID("trigger")),
			testutil.NewNode(models.NodeTypeAction, testutil.WithID("left")),
			testutil.NewNode(models.NodeTypeAction, testutil.WithID("right")),
			testutil.NewNode(models.NodeTypeMerge, testutil.WithID("merge")),
		},
		testutil.WithConnections(
			testutil.Connect("trigger", "left"),
			testutil.Connect("trigger", "right"),
			testutil.Connect("left", "merge"),
			testutil.Connect("right", "merge"),
		),
	)

	g, err := New(wf)
	require.NoError(t, err)

	order, err := g.Order()
	require.NoError(t, err)

	ids := make([]string, 0, len(order))
	for _, node := range order {
		ids = append(ids, node.ID)
	}

	assert.Equal(t, []string{"trigger", "left", "right", "merge"}, ids)
}

func TestOrder_FlatWorkflowUsesDefinitionOrder(t *testing.T) {
	wf := testutil.NewWorkflow([]*models.WorkflowNode{
		testutil.NewNode(models.NodeTypeTrigger, testutil.WithID("first")),
		testutil.NewNode(models.NodeTypeAction, testutil.WithID("second")),
		testutil.NewNode(models.NodeTypeAction, testutil.WithID("third")),
	})

	g, err := New(wf)
	require.NoError(t, err)
	assert.False(t, g.HasConnections())

	order, err := g.Order()
	require.NoError(t, err)
	require.Len(t, order, 3)
	assert.Equal(t, "first", order[0].ID)
	assert.Equal(t, "third", order[2].ID)
}

func TestOutgoing_DeclarationOrder(t *testing.T) {
	wf := testutil.NewWorkflow(
		[]*models.WorkflowNode{
			testutil.NewNode(models.NodeTypeBranch, testutil.WithID("branch")),
			testutil.NewNode(models.NodeTypeAction, testutil.WithID("a")),
			testutil.NewNode(models.NodeTypeAction, testutil.WithID("b")),
		},
		testutil.WithConnections(
			testutil.ConnectIf("branch", "a", "{x} > 1"),
			testutil.ConnectIf("branch", "b", "{x} <= 1"),
		),
	)

	g, err := New(wf)
	require.NoError(t, err)

	outgoing := g.Outgoing("branch")
	require.Len(t, outgoing, 2)
	assert.Equal(t, "a", outgoing[0].TargetNodeID)
	assert.Equal(t, "b", outgoing[1].TargetNodeID)
	assert.Empty(t, g.Outgoing("a"))
}
