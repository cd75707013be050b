package model

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/hgmesh/core"
)

// PayloadKeyCompletion carries the raw model completion of an expansion.
const PayloadKeyCompletion = "completion"

// PromptFunc renders the prompt for a node. It receives the node id so
// callers can look up node context from their own state.
type PromptFunc func(nodeID string) string

// ExpansionActivity adapts a model completion into an expansion activity:
// the prompt is rendered per node, and the completion is returned in the
// payload under PayloadKeyCompletion.
func ExpansionActivity(m Model, promptFn PromptFunc) core.ActivityFunc {
	return func(ctx context.Context, nodeID string) (core.Payload, error) {
		completion, err := m.Complete(ctx, promptFn(nodeID))
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.Info().Name, err)
		}
		return core.Payload{PayloadKeyCompletion: completion}, nil
	}
}

// EvaluationActivity adapts a model completion into an evaluation: the
// completion is parsed as a decimal reward. The model is expected to answer
// with a bare number; surrounding whitespace is tolerated.
func EvaluationActivity(m Model, promptFn PromptFunc) core.EvaluateFunc {
	return func(ctx context.Context, nodeID string) (float64, error) {
		completion, err := m.Complete(ctx, promptFn(nodeID))
		if err != nil {
			return 0, fmt.Errorf("model %s: %w", m.Info().Name, err)
		}
		reward, err := ParseReward(completion)
		if err != nil {
			return 0, err
		}
		return reward, nil
	}
}

// ParseReward extracts a numeric reward from a model completion.
func ParseReward(completion string) (float64, error) {
	trimmed := strings.TrimSpace(completion)
	reward, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("parse reward %q: %w", trimmed, err)
	}
	return reward, nil
}
