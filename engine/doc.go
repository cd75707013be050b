// Package engine orchestrates the two named activities — expand and
// evaluate — against the agent tree.
//
// The engine owns the tree, delegates dispatch to the scheduler and feeds
// every completion to the sentinel monitor. The activity function itself,
// which may be slow, always runs outside the tree lock; only the result
// application is locked, so unrelated nodes are never blocked by a slow
// expansion.
//
// Lifecycle of one expansion:
//
//  1. ScheduleExpansion creates (or reuses) a Pending child node and submits
//     it to the scheduler.
//  2. The scheduler acquires a slot, marks the node busy and calls the
//     engine's start hook, which transitions the node to Expanding under the
//     tree lock.
//  3. The activity runs, with retry/backoff on failure.
//  4. On settlement the engine records the result (Done, Failed, or back to
//     Pending on cancellation) and forwards an event to the sentinel
//     monitor, all before the node leaves the busy set — so node state and
//     the scheduler's busy set always agree.
//  5. Guardrail decisions returned by the monitor are applied: pruned nodes
//     are removed from scheduling eligibility; a pause gates new top-level
//     mission submissions but never aborts in-flight work.
//
// Evaluation follows the same shape with Done -> Evaluating -> Done and the
// reward forwarded to the monitor.
package engine
