package testutil

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/hgmesh/core"
)

// Succeed returns an activity that always succeeds with the given payload.
func Succeed(payload core.Payload) core.ActivityFunc {
	return func(_ context.Context, _ string) (core.Payload, error) {
		return payload, nil
	}
}

// AlwaysFail returns an activity that fails every attempt with err.
func AlwaysFail(err error) core.ActivityFunc {
	return func(_ context.Context, _ string) (core.Payload, error) {
		return nil, err
	}
}

// SucceedAfter returns an activity that fails the first failures attempts and
// then succeeds with payload. The shared counter makes it single-node: use
// one per submission.
func SucceedAfter(failures int, payload core.Payload) core.ActivityFunc {
	var attempts atomic.Int64
	return func(_ context.Context, nodeID string) (core.Payload, error) {
		if attempts.Add(1) <= int64(failures) {
			return nil, fmt.Errorf("transient failure for %s", nodeID)
		}
		return payload, nil
	}
}

// Block returns an activity that blocks until release is closed (or the
// context is cancelled). Tests use it to hold scheduler slots at will.
func Block(release <-chan struct{}, payload core.Payload) core.ActivityFunc {
	return func(ctx context.Context, _ string) (core.Payload, error) {
		select {
		case <-release:
			return payload, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Reward returns an evaluation that always yields the given reward.
func Reward(value float64) core.EvaluateFunc {
	return func(_ context.Context, _ string) (float64, error) {
		return value, nil
	}
}

// FailEvaluation returns an evaluation that always fails with err.
func FailEvaluation(err error) core.EvaluateFunc {
	return func(_ context.Context, _ string) (float64, error) {
		return 0, err
	}
}
