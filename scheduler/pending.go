package scheduler

import (
	"context"

	"github.com/hupe1980/hgmesh/core"
)

// Pending is the handle returned by Submit for an accepted activity. The
// result fields are written exactly once, before the done channel closes, so
// they are safe to read after Done() fires or Wait returns.
type Pending struct {
	nodeID string
	kind   core.ActivityKind
	cancel context.CancelFunc
	done   chan struct{}

	result   core.Payload
	err      error
	attempts int
}

// NodeID returns the node the activity runs against.
func (p *Pending) NodeID() string { return p.nodeID }

// Kind returns the activity kind ("expand" or "evaluate").
func (p *Pending) Kind() core.ActivityKind { return p.kind }

// Done returns a channel closed when the activity settles (success, terminal
// failure or cancellation). By the time it closes the node has left the busy
// set and all completion hooks have run.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the activity settles or ctx expires, returning the final
// result and error.
func (p *Pending) Wait(ctx context.Context) (core.Payload, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return p.result, p.err
	}
}

// Cancel best-effort signals the underlying activity to stop. A cancelled
// activity settles with the cancellation error instead of retrying; the
// engine returns the node to its pre-activity state so it stays eligible for
// resubmission.
func (p *Pending) Cancel() { p.cancel() }

// Attempts returns how many attempts ran. Only meaningful after Done().
func (p *Pending) Attempts() int { return p.attempts }
