// Package sentinel implements the guardrail monitor. It observes every
// expansion and evaluation event, accumulates return-on-investment (ROI)
// per mission, tracks consecutive failure streaks, and autonomously pauses
// activity when configured risk thresholds are crossed.
//
// The monitor is a two-state machine: Active and Paused. A breach of the ROI
// floor or a failure streak transitions it to Paused; it stays Paused until
// an operator calls Resume, which is refused while the configured pause
// window has not yet elapsed (cool-down against flapping). Pausing never
// aborts in-flight activities; it only gates new top-level mission
// submissions at the engine.
//
// Guardrail decisions are not errors. They are returned from the observe
// entry points as Decision values and surfaced to observers through
// Snapshot and the alerting dispatcher.
package sentinel
