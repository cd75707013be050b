package sentinel

import "errors"

var (
	// ErrPauseWindowActive is returned by Resume while the cool-down window
	// since the pause timestamp has not yet elapsed. Recoverable; the
	// operator should wait and retry.
	ErrPauseWindowActive = errors.New("pause window still active")

	// ErrNotPaused is returned by Resume when the monitor is Active.
	ErrNotPaused = errors.New("monitor is not paused")
)
