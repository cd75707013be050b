package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hgmesh/core"
)

func TestCreateRoot(t *testing.T) {
	tr := New()

	root, err := tr.CreateRoot("mission")
	require.NoError(t, err)
	assert.Equal(t, core.StatePending, root.State)
	assert.Equal(t, []string{"mission"}, tr.Roots())

	_, err = tr.CreateRoot("mission")
	assert.ErrorIs(t, err, ErrNodeExists)
}

func TestCreateChild(t *testing.T) {
	tr := New()
	_, err := tr.CreateRoot("mission")
	require.NoError(t, err)

	child, err := tr.CreateChild("mission")
	require.NoError(t, err)
	assert.Equal(t, "mission", child.ParentID)
	assert.Equal(t, "mission", child.Mission())
	assert.Equal(t, core.StatePending, child.State)

	parent, ok := tr.Get("mission")
	require.True(t, ok)
	assert.Equal(t, []string{child.ID}, parent.Children)

	_, err = tr.CreateChild("nope")
	assert.ErrorIs(t, err, ErrUnknownParent)
}

func TestExpansionLifecycle(t *testing.T) {
	tr := New()
	_, err := tr.CreateRoot("mission")
	require.NoError(t, err)

	require.NoError(t, tr.MarkExpanding("mission"))
	node, _ := tr.Get("mission")
	assert.Equal(t, core.StateExpanding, node.State)

	// Double-mark is an invalid transition.
	assert.ErrorIs(t, tr.MarkExpanding("mission"), ErrInvalidTransition)

	require.NoError(t, tr.RecordExpansion("mission", core.Payload{"note": "x"}))
	node, _ = tr.Get("mission")
	assert.Equal(t, core.StateDone, node.State)
	assert.Equal(t, "x", node.Payload["note"])
}

func TestRecordExpansionFromPending(t *testing.T) {
	tr := New()
	_, err := tr.CreateRoot("mission")
	require.NoError(t, err)

	// Direct record without scheduling is accepted from Pending.
	require.NoError(t, tr.RecordExpansion("mission", nil))
	node, _ := tr.Get("mission")
	assert.Equal(t, core.StateDone, node.State)

	assert.ErrorIs(t, tr.RecordExpansion("mission", nil), ErrInvalidTransition)
}

func TestEvaluationLifecycle(t *testing.T) {
	tr := New()
	_, err := tr.CreateRoot("mission")
	require.NoError(t, err)

	// Evaluation requires a Done node.
	assert.ErrorIs(t, tr.MarkEvaluating("mission"), ErrInvalidTransition)

	require.NoError(t, tr.RecordExpansion("mission", nil))
	require.NoError(t, tr.MarkEvaluating("mission"))
	require.NoError(t, tr.RecordEvaluation("mission", 0.8))

	node, _ := tr.Get("mission")
	assert.Equal(t, core.StateDone, node.State)
	require.NotNil(t, node.Reward)
	assert.Equal(t, 0.8, *node.Reward)
}

func TestRecordFailure(t *testing.T) {
	tr := New()
	_, err := tr.CreateRoot("mission")
	require.NoError(t, err)

	// Only busy nodes can fail.
	assert.ErrorIs(t, tr.RecordFailure("mission"), ErrInvalidTransition)

	require.NoError(t, tr.MarkExpanding("mission"))
	require.NoError(t, tr.RecordFailure("mission"))
	node, _ := tr.Get("mission")
	assert.Equal(t, core.StateFailed, node.State)
}

func TestReturnToPrior(t *testing.T) {
	tr := New()
	_, err := tr.CreateRoot("mission")
	require.NoError(t, err)

	require.NoError(t, tr.MarkExpanding("mission"))
	require.NoError(t, tr.ReturnToPrior("mission"))
	node, _ := tr.Get("mission")
	assert.Equal(t, core.StatePending, node.State)

	require.NoError(t, tr.RecordExpansion("mission", nil))
	require.NoError(t, tr.MarkEvaluating("mission"))
	require.NoError(t, tr.ReturnToPrior("mission"))
	node, _ = tr.Get("mission")
	assert.Equal(t, core.StateDone, node.State)

	assert.ErrorIs(t, tr.ReturnToPrior("mission"), ErrInvalidTransition)
}

func TestPruneCascade(t *testing.T) {
	tr := New()
	_, err := tr.CreateRoot("mission")
	require.NoError(t, err)
	require.NoError(t, tr.RecordExpansion("mission", nil))

	pending, err := tr.CreateChild("mission")
	require.NoError(t, err)
	done, err := tr.CreateChild("mission")
	require.NoError(t, err)
	require.NoError(t, tr.RecordExpansion(done.ID, nil))
	grandchild, err := tr.CreateChild(done.ID)
	require.NoError(t, err)

	pruned, err := tr.Prune("mission", true)
	require.NoError(t, err)
	// The target plus every Pending descendant, visited nodes untouched.
	assert.ElementsMatch(t, []string{"mission", pending.ID, grandchild.ID}, pruned)

	node, _ := tr.Get(done.ID)
	assert.Equal(t, core.StateDone, node.State)
	node, _ = tr.Get(pending.ID)
	assert.Equal(t, core.StatePruned, node.State)

	// Re-pruning is a no-op.
	pruned, err = tr.Prune("mission", true)
	require.NoError(t, err)
	assert.Empty(t, pruned)

	// A pruned node never re-enters Pending.
	assert.ErrorIs(t, tr.MarkExpanding(pending.ID), ErrNodePruned)
	_, err = tr.CreateChild(pending.ID)
	assert.ErrorIs(t, err, ErrNodePruned)
}

func TestPruneRefusesBusyNode(t *testing.T) {
	tr := New()
	_, err := tr.CreateRoot("mission")
	require.NoError(t, err)
	require.NoError(t, tr.MarkExpanding("mission"))

	_, err = tr.Prune("mission", false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	tr := New()
	_, err := tr.CreateRoot("mission")
	require.NoError(t, err)

	snapshot := tr.Snapshot()
	snapshot["mission"].State = core.StateFailed

	node, _ := tr.Get("mission")
	assert.Equal(t, core.StatePending, node.State)
	assert.Equal(t, 1, tr.Len())
}
