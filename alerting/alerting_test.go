package alerting

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var (
	_ Dispatcher = NoOpDispatcher{}
	_ Dispatcher = (*LogDispatcher)(nil)
	_ Dispatcher = (*FanoutDispatcher)(nil)
	_ Dispatcher = (*Collector)(nil)
)

type failingDispatcher struct{ err error }

func (d failingDispatcher) Notify(context.Context, Alert) error { return d.err }

func TestCollector(t *testing.T) {
	c := NewCollector()
	require.NoError(t, c.Notify(context.Background(), Alert{Mission: "alpha", Reason: "roi-floor-breached"}))
	require.NoError(t, c.Notify(context.Background(), Alert{Mission: "beta", Reason: "failure-streak"}))

	alerts := c.Alerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, "alpha", alerts[0].Mission)
	assert.Equal(t, "beta", alerts[1].Mission)

	// Returned slice is a copy.
	alerts[0].Mission = "mutated"
	assert.Equal(t, "alpha", c.Alerts()[0].Mission)
}

func TestFanoutDeliversToAll(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	fanout := NewFanout(a, nil, b)

	require.NoError(t, fanout.Notify(context.Background(), Alert{Mission: "alpha"}))
	assert.Len(t, a.Alerts(), 1)
	assert.Len(t, b.Alerts(), 1)
}

func TestFanoutJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	c := NewCollector()
	fanout := NewFanout(failingDispatcher{err: boom}, c)

	err := fanout.Notify(context.Background(), Alert{Mission: "alpha"})
	assert.ErrorIs(t, err, boom)
	// A failing sibling does not block delivery to the others.
	assert.Len(t, c.Alerts(), 1)
}

func TestLogDispatcherNilLogger(t *testing.T) {
	d := &LogDispatcher{}
	assert.NoError(t, d.Notify(context.Background(), Alert{Mission: "alpha"}))
}
