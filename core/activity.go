package core

import "context"

// ActivityKind names one of the two activities the engine dispatches.
type ActivityKind string

const (
	// ActivityExpand spawns child work for a node.
	ActivityExpand ActivityKind = "expand"
	// ActivityEvaluate scores a completed node for reward.
	ActivityEvaluate ActivityKind = "evaluate"
)

// Well-known payload keys interpreted by the engine and sentinel monitor.
// Everything else in a Payload is opaque to the core.
const (
	// PayloadKeyReward carries the numeric reward of an evaluation.
	PayloadKeyReward = "reward"
	// PayloadKeyError marks a payload as describing a failed activity.
	PayloadKeyError = "error"
)

// Payload is the opaque key/value result an activity hands back to the
// engine. The engine records it on the node and forwards it to the monitor.
type Payload map[string]any

// Clone returns a shallow-value copy of the payload (values are treated as
// immutable by convention; activities must not mutate a payload after
// returning it).
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	clone := make(Payload, len(p))
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

// Reward extracts the evaluation reward, if present.
func (p Payload) Reward() (float64, bool) {
	switch v := p[PayloadKeyReward].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// Failure returns the failure message carried by the payload, if any.
func (p Payload) Failure() (string, bool) {
	s, ok := p[PayloadKeyError].(string)
	return s, ok && s != ""
}

// FailurePayload builds the payload the engine forwards to the monitor when
// an activity fails terminally.
func FailurePayload(err error) Payload {
	if err == nil {
		return Payload{}
	}
	return Payload{PayloadKeyError: err.Error()}
}

// RewardPayload wraps a numeric reward in the payload shape the monitor
// expects from evaluation events.
func RewardPayload(reward float64) Payload {
	return Payload{PayloadKeyReward: reward}
}

// ActivityFunc is a caller-supplied asynchronous operation executed by the
// scheduler against one node. Implementations must honor ctx cancellation;
// their internals (network calls, compute) are opaque to the core.
type ActivityFunc func(ctx context.Context, nodeID string) (Payload, error)

// EvaluateFunc scores a completed node. The engine adapts it to an
// ActivityFunc carrying the reward under PayloadKeyReward.
type EvaluateFunc func(ctx context.Context, nodeID string) (float64, error)
