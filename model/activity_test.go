package model

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpansionActivity(t *testing.T) {
	m := NewMockModel("test-model")
	m.AddResponse("expand node-1", "a fresh idea")

	activity := ExpansionActivity(m, func(nodeID string) string {
		return fmt.Sprintf("expand %s", nodeID)
	})

	payload, err := activity(context.Background(), "node-1")
	require.NoError(t, err)
	assert.Equal(t, "a fresh idea", payload[PayloadKeyCompletion])
}

func TestExpansionActivityWrapsModelError(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockModel("test-model")
	m.FailWith(boom)

	activity := ExpansionActivity(m, func(string) string { return "p" })
	_, err := activity(context.Background(), "node-1")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "test-model")
}

func TestEvaluationActivity(t *testing.T) {
	m := NewMockModel("test-model")
	m.AddResponse("score node-1", " 0.75\n")

	evaluate := EvaluationActivity(m, func(nodeID string) string {
		return fmt.Sprintf("score %s", nodeID)
	})

	reward, err := evaluate(context.Background(), "node-1")
	require.NoError(t, err)
	assert.Equal(t, 0.75, reward)
}

func TestEvaluationActivityRejectsNonNumeric(t *testing.T) {
	m := NewMockModel("test-model")
	m.AddResponse("score node-1", "very promising!")

	evaluate := EvaluationActivity(m, func(string) string { return "score node-1" })
	_, err := evaluate(context.Background(), "node-1")
	assert.Error(t, err)
}

func TestParseReward(t *testing.T) {
	reward, err := ParseReward("-0.5")
	require.NoError(t, err)
	assert.Equal(t, -0.5, reward)

	_, err = ParseReward("")
	assert.Error(t, err)
}
