package core

import (
	"strings"

	"github.com/google/uuid"
)

// NodeState describes where a node is in its activity lifecycle. Transitions
// only move forward: Pending -> Expanding -> Done|Failed for expansion and
// Done -> Evaluating -> Done|Failed for evaluation. Pruned is reachable from
// any non-terminal state and is terminal.
type NodeState string

const (
	// StatePending marks a node that has been created but not yet scheduled.
	StatePending NodeState = "pending"
	// StateExpanding marks a node with an expansion activity in flight.
	StateExpanding NodeState = "expanding"
	// StateEvaluating marks a node with an evaluation activity in flight.
	StateEvaluating NodeState = "evaluating"
	// StateDone marks a node whose last activity completed successfully.
	StateDone NodeState = "done"
	// StateFailed marks a node whose activity exhausted its retry budget.
	StateFailed NodeState = "failed"
	// StatePruned marks a node removed from scheduling by a guardrail
	// decision. Terminal; a pruned node never re-enters Pending.
	StatePruned NodeState = "pruned"
)

// Busy reports whether the state implies an in-flight activity. A node in a
// busy state must appear in the scheduler's in-flight bookkeeping and vice
// versa.
func (s NodeState) Busy() bool {
	return s == StateExpanding || s == StateEvaluating
}

// Terminal reports whether no further activity may be scheduled for the state.
func (s NodeState) Terminal() bool {
	return s == StatePruned
}

// Node is a single agent computation in the expanding tree. The tree package
// owns all Node instances; callers only ever see deep copies.
type Node struct {
	ID       string    `json:"id"`
	State    NodeState `json:"state"`
	ParentID string    `json:"parent_id,omitempty"`
	Children []string  `json:"children,omitempty"`
	Payload  Payload   `json:"payload,omitempty"`
	Reward   *float64  `json:"reward,omitempty"`
	Attempts int       `json:"attempts"`
}

// Clone returns a deep copy of the node safe to hand to external observers.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := &Node{
		ID:       n.ID,
		State:    n.State,
		ParentID: n.ParentID,
		Attempts: n.Attempts,
	}
	if len(n.Children) > 0 {
		clone.Children = make([]string, len(n.Children))
		copy(clone.Children, n.Children)
	}
	clone.Payload = n.Payload.Clone()
	if n.Reward != nil {
		r := *n.Reward
		clone.Reward = &r
	}
	return clone
}

// Mission returns the mission the node belongs to.
func (n *Node) Mission() string { return MissionOf(n.ID) }

// MissionOf extracts the mission identifier from a path-like node id. The
// first path segment names the mission, e.g. "mission/root/4f2c" -> "mission".
func MissionOf(nodeID string) string {
	if i := strings.IndexByte(nodeID, '/'); i > 0 {
		return nodeID[:i]
	}
	return nodeID
}

// NewID generates a unique identifier.
func NewID() string { return uuid.NewString() }

// ChildID derives a fresh path-like id for a child of the given parent,
// preserving the lineage prefix so mission membership stays derivable.
func ChildID(parentID string) string {
	return parentID + "/" + uuid.NewString()
}
