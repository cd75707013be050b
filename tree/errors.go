package tree

import "errors"

var (
	// ErrUnknownParent is returned when a child is created under a parent id
	// that does not exist in the tree.
	ErrUnknownParent = errors.New("unknown parent node")

	// ErrNodeNotFound is returned when an operation references a node id that
	// does not exist in the tree.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNodeExists is returned when a root is created with an id that is
	// already present.
	ErrNodeExists = errors.New("node already exists")

	// ErrInvalidTransition is returned when a mutation would move a node
	// backwards through its lifecycle. Programming/data error; never retried.
	ErrInvalidTransition = errors.New("invalid node state transition")

	// ErrNodePruned is returned when an operation targets a node that a
	// guardrail decision has removed from scheduling eligibility.
	ErrNodePruned = errors.New("node is pruned")
)
