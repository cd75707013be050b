// Package tree owns the agent tree: every node, its parent/child links and
// its lifecycle state. All structural mutation happens under one exclusive
// lock so concurrent activity completions cannot interleave a read of
// partially-updated state. The engine is the only writer; external observers
// read deep-copied snapshots.
package tree

import (
	"fmt"
	"sync"

	"github.com/hupe1980/hgmesh/core"
	"github.com/hupe1980/hgmesh/logging"
)

// Options configures a Tree instance.
type Options struct {
	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger
}

// Tree is a rooted forest of agent nodes keyed by id. It is safe for
// concurrent use; every mutator takes the serialization lock.
type Tree struct {
	mu     sync.RWMutex
	nodes  map[string]*core.Node
	roots  []string
	logger logging.Logger
}

// New creates an empty tree.
func New(optFns ...func(o *Options)) *Tree {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Tree{
		nodes:  make(map[string]*core.Node),
		logger: opts.Logger,
	}
}

// CreateRoot adds a new mission root with the given id.
func (t *Tree) CreateRoot(id string) (*core.Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.nodes[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeExists, id)
	}
	node := &core.Node{ID: id, State: core.StatePending}
	t.nodes[id] = node
	t.roots = append(t.roots, id)
	t.logger.Debug("tree.root created node_id=%s", id)
	return node.Clone(), nil
}

// CreateChild adds a new Pending child under parentID, deriving a path-like
// child id so mission lineage stays readable.
func (t *Tree) CreateChild(parentID string) (*core.Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent, ok := t.nodes[parentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParent, parentID)
	}
	if parent.State == core.StatePruned {
		return nil, fmt.Errorf("%w: %s", ErrNodePruned, parentID)
	}
	node := &core.Node{
		ID:       core.ChildID(parentID),
		State:    core.StatePending,
		ParentID: parentID,
	}
	t.nodes[node.ID] = node
	parent.Children = append(parent.Children, node.ID)
	t.logger.Debug("tree.child created node_id=%s parent_id=%s", node.ID, parentID)
	return node.Clone(), nil
}

// Get returns a deep copy of the node, if present.
func (t *Tree) Get(id string) (*core.Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node, ok := t.nodes[id]
	if !ok {
		return nil, false
	}
	return node.Clone(), true
}

// MarkExpanding transitions Pending -> Expanding and resets the attempt
// counter for the new activity.
func (t *Tree) MarkExpanding(id string) error {
	return t.transition(id, core.StateExpanding, core.StatePending)
}

// MarkEvaluating transitions Done -> Evaluating and resets the attempt
// counter for the new activity.
func (t *Tree) MarkEvaluating(id string) error {
	return t.transition(id, core.StateEvaluating, core.StateDone)
}

func (t *Tree) transition(id string, to core.NodeState, from ...core.NodeState) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if node.State == core.StatePruned {
		return fmt.Errorf("%w: %s", ErrNodePruned, id)
	}
	for _, s := range from {
		if node.State == s {
			node.State = to
			node.Attempts = 0
			return nil
		}
	}
	return fmt.Errorf("%w: node %s cannot move %s -> %s", ErrInvalidTransition, id, node.State, to)
}

// RecordExpansion stores the expansion result and transitions the node to
// Done. Accepted from Expanding (the scheduled path) or Pending (a direct
// record without scheduling); anything else is an invalid transition.
func (t *Tree) RecordExpansion(id string, payload core.Payload) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if node.State != core.StateExpanding && node.State != core.StatePending {
		return fmt.Errorf("%w: node %s cannot record expansion in state %s", ErrInvalidTransition, id, node.State)
	}
	node.State = core.StateDone
	node.Payload = payload.Clone()
	return nil
}

// RecordEvaluation stores the reward and transitions the node back to Done.
// Accepted from Evaluating (the scheduled path) or Done (a direct record).
func (t *Tree) RecordEvaluation(id string, reward float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if node.State != core.StateEvaluating && node.State != core.StateDone {
		return fmt.Errorf("%w: node %s cannot record evaluation in state %s", ErrInvalidTransition, id, node.State)
	}
	node.State = core.StateDone
	node.Reward = &reward
	return nil
}

// RecordFailure marks a node Failed after its activity exhausted the retry
// budget.
func (t *Tree) RecordFailure(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if !node.State.Busy() {
		return fmt.Errorf("%w: node %s cannot fail in state %s", ErrInvalidTransition, id, node.State)
	}
	node.State = core.StateFailed
	return nil
}

// ReturnToPrior undoes an in-flight marker after a cancelled activity: an
// Expanding node returns to Pending, an Evaluating node returns to Done. The
// node stays eligible for resubmission.
func (t *Tree) ReturnToPrior(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	switch node.State {
	case core.StateExpanding:
		node.State = core.StatePending
	case core.StateEvaluating:
		node.State = core.StateDone
	default:
		return fmt.Errorf("%w: node %s has no in-flight activity to undo (state %s)", ErrInvalidTransition, id, node.State)
	}
	return nil
}

// SetAttempts records the scheduling attempt count for the node's current
// activity.
func (t *Tree) SetAttempts(id string, attempts int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	node.Attempts = attempts
	return nil
}

// Prune marks the node Pruned and, when cascade is set, every unvisited
// (Pending) descendant. Returns the ids actually pruned. Pruned is terminal:
// re-pruning is a no-op and a pruned node can never re-enter Pending.
func (t *Tree) Prune(id string, cascade bool) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if node.State.Busy() {
		// In-flight work is never aborted by a prune; the caller must wait
		// for the activity to settle first.
		return nil, fmt.Errorf("%w: node %s has an activity in flight", ErrInvalidTransition, id)
	}

	var pruned []string
	if node.State != core.StatePruned {
		node.State = core.StatePruned
		pruned = append(pruned, id)
	}
	if cascade {
		pruned = append(pruned, t.pruneDescendants(node)...)
	}
	if len(pruned) > 0 {
		t.logger.Debug("tree.pruned nodes=%v cascade=%v", pruned, cascade)
	}
	return pruned, nil
}

func (t *Tree) pruneDescendants(node *core.Node) []string {
	var pruned []string
	for _, childID := range node.Children {
		child, ok := t.nodes[childID]
		if !ok {
			continue
		}
		if child.State == core.StatePending {
			child.State = core.StatePruned
			pruned = append(pruned, childID)
		}
		pruned = append(pruned, t.pruneDescendants(child)...)
	}
	return pruned
}

// Snapshot returns a deep, immutable copy of all nodes keyed by id, safe to
// hand to external observers without locking.
func (t *Tree) Snapshot() map[string]*core.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := make(map[string]*core.Node, len(t.nodes))
	for id, node := range t.nodes {
		snapshot[id] = node.Clone()
	}
	return snapshot
}

// Roots returns the mission root ids in creation order.
func (t *Tree) Roots() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	roots := make([]string, len(t.roots))
	copy(roots, t.roots)
	return roots
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}
