package sentinel

import "time"

// Config is the immutable threshold configuration consumed by the Monitor.
type Config struct {
	// ROIFloor is the minimum acceptable mission ROI before the monitor
	// pauses with reason ReasonROIFloor.
	ROIFloor float64

	// MaxFailures is the consecutive-failure count per mission that triggers
	// a pause with reason ReasonFailureStreak.
	MaxFailures int

	// PauseWindow is the minimum duration after a pause before Resume is
	// accepted.
	PauseWindow time.Duration

	// AssumedCost is subtracted from every evaluation reward when updating
	// mission ROI.
	AssumedCost float64

	// CascadePrune extends a streak-triggered prune from the offending node
	// to its unvisited descendants.
	CascadePrune bool
}

// DefaultConfig provides permissive defaults: guardrails only fire on
// sustained losses or repeated failures.
var DefaultConfig = Config{
	ROIFloor:     -10.0,
	MaxFailures:  5,
	PauseWindow:  30 * time.Second,
	AssumedCost:  0,
	CascadePrune: true,
}
