package hgmesh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hgmesh/core"
	"github.com/hupe1980/hgmesh/scheduler"
)

func TestFacadeEndToEnd(t *testing.T) {
	mesh := New(func(o *Options) {
		o.SchedulerConfig = scheduler.Config{
			ConcurrencyCap: 2,
			MaxAttempts:    2,
			BackoffBase:    time.Millisecond,
			BackoffCap:     5 * time.Millisecond,
		}
	})
	ctx := context.Background()

	root, err := mesh.StartMission("mission")
	require.NoError(t, err)

	childID, pending, err := mesh.ScheduleExpansion(ctx, root.ID,
		func(_ context.Context, _ string) (core.Payload, error) {
			return core.Payload{"note": "x"}, nil
		})
	require.NoError(t, err)
	_, err = pending.Wait(ctx)
	require.NoError(t, err)

	evalPending, err := mesh.ScheduleEvaluation(ctx, childID,
		func(_ context.Context, _ string) (float64, error) { return 0.5, nil })
	require.NoError(t, err)
	_, err = evalPending.Wait(ctx)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, mesh.Monitor().ROI("mission"), 1e-9)
	assert.Len(t, mesh.Snapshot(), 2)
	assert.Empty(t, mesh.BusyAgents())
	assert.Empty(t, mesh.Errors())
}
