// Package scheduler dispatches expansion and evaluation activities under a
// global concurrency cap with retry-with-backoff and busy-agent avoidance.
//
// The two constraints are deliberately separate:
//
//   - The concurrency cap bounds how many activities hold an execution slot
//     at once; a submission over capacity waits (it does not spin) until a
//     slot frees.
//   - Busy-agent avoidance refuses a second submission for a node whose
//     activity is still in flight, surfacing ErrBusy immediately even when
//     the scheduler is at capacity.
//
// Conflating the two would either starve distinct nodes or allow racing
// duplicate activities on one node.
//
// Failed attempts are retried with exponential backoff (delay doubles per
// attempt, capped) up to a configured maximum attempt count; exceeding it
// records a terminal error in an inspectable mapping and frees the node so
// other activities are not starved. Retries for a node are strictly ordered:
// attempt N+1 never starts before attempt N's failure is fully recorded.
package scheduler
