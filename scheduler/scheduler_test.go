package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hgmesh/core"
)

func fastConfig() Config {
	return Config{
		ConcurrencyCap: 4,
		MaxAttempts:    3,
		BackoffBase:    time.Millisecond,
		BackoffCap:     5 * time.Millisecond,
	}
}

func newTestScheduler(cfg Config) *Scheduler {
	return New(func(o *Options) { o.Config = cfg })
}

func TestSubmitSuccess(t *testing.T) {
	s := newTestScheduler(fastConfig())

	pending, err := s.Submit(context.Background(), "mission/a", core.ActivityExpand,
		func(_ context.Context, _ string) (core.Payload, error) {
			return core.Payload{"note": "ok"}, nil
		})
	require.NoError(t, err)

	result, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", result["note"])
	assert.Equal(t, 1, pending.Attempts())
	assert.False(t, s.IsBusy("mission/a"))
	assert.Empty(t, s.Errors())
}

func TestSubmitRefusesBusyNode(t *testing.T) {
	s := newTestScheduler(fastConfig())
	release := make(chan struct{})

	block := func(ctx context.Context, _ string) (core.Payload, error) {
		select {
		case <-release:
			return core.Payload{}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	pending, err := s.Submit(context.Background(), "mission/a", core.ActivityExpand, block)
	require.NoError(t, err)
	assert.True(t, s.IsBusy("mission/a"))

	// Duplicate submission for the same node fails fast; the in-flight
	// activity is unaffected.
	_, err = s.Submit(context.Background(), "mission/a", core.ActivityExpand, block)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	_, err = pending.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, s.IsBusy("mission/a"))
}

func TestConcurrencyCap(t *testing.T) {
	cfg := fastConfig()
	cfg.ConcurrencyCap = 2
	s := newTestScheduler(cfg)

	var running, peak atomic.Int64
	release := make(chan struct{})
	activity := func(ctx context.Context, _ string) (core.Payload, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer running.Add(-1)
		select {
		case <-release:
			return core.Payload{}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var wg sync.WaitGroup
	pendings := make([]*Pending, 0, 5)
	var mu sync.Mutex
	for _, id := range []string{"m/a", "m/b", "m/c", "m/d", "m/e"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.Submit(context.Background(), id, core.ActivityExpand, activity)
			if err != nil {
				t.Errorf("submit %s: %v", id, err)
				return
			}
			mu.Lock()
			pendings = append(pendings, p)
			mu.Unlock()
		}()
	}

	// Give the first two submissions time to take the slots, then release
	// everything and drain.
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, len(s.InFlight()), 2)
	close(release)
	wg.Wait()
	for _, p := range pendings {
		_, err := p.Wait(context.Background())
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestRetryUntilSuccess(t *testing.T) {
	s := newTestScheduler(fastConfig())

	var attempts atomic.Int64
	pending, err := s.Submit(context.Background(), "mission/a", core.ActivityExpand,
		func(_ context.Context, _ string) (core.Payload, error) {
			if attempts.Add(1) < 3 {
				return nil, errors.New("transient")
			}
			return core.Payload{}, nil
		})
	require.NoError(t, err)

	_, err = pending.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, pending.Attempts())
	assert.Empty(t, s.Errors())
}

func TestAttemptsExhausted(t *testing.T) {
	s := newTestScheduler(fastConfig())

	boom := errors.New("boom")
	pending, err := s.Submit(context.Background(), "mission/a", core.ActivityExpand,
		func(_ context.Context, _ string) (core.Payload, error) {
			return nil, boom
		})
	require.NoError(t, err)

	_, err = pending.Wait(context.Background())
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 3, pending.Attempts())

	// Terminal error recorded, busy entry cleared.
	assert.ErrorIs(t, s.Errors()["mission/a"], ErrAttemptsExhausted)
	assert.False(t, s.IsBusy("mission/a"))

	// The node is schedulable again after settlement.
	pending, err = s.Submit(context.Background(), "mission/a", core.ActivityExpand,
		func(_ context.Context, _ string) (core.Payload, error) {
			return core.Payload{}, nil
		})
	require.NoError(t, err)
	_, err = pending.Wait(context.Background())
	require.NoError(t, err)
}

func TestCancelSettlesWithoutRetry(t *testing.T) {
	s := newTestScheduler(fastConfig())

	pending, err := s.Submit(context.Background(), "mission/a", core.ActivityExpand,
		func(ctx context.Context, _ string) (core.Payload, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	require.NoError(t, err)

	pending.Cancel()
	_, err = pending.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)

	// Cancellation is not a failure: no terminal error record.
	assert.Empty(t, s.Errors())
	assert.False(t, s.IsBusy("mission/a"))
}

func TestPerAttemptTimeout(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = 2
	s := newTestScheduler(cfg)

	pending, err := s.Submit(context.Background(), "mission/a", core.ActivityExpand,
		func(ctx context.Context, _ string) (core.Payload, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		WithTimeout(5*time.Millisecond))
	require.NoError(t, err)

	// The attempt deadline counts as a failure, so the retry budget drains.
	_, err = pending.Wait(context.Background())
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 2, pending.Attempts())
}

func TestOnStartErrorSettlesImmediately(t *testing.T) {
	s := newTestScheduler(fastConfig())

	hookErr := errors.New("transition refused")
	var ran atomic.Bool
	pending, err := s.Submit(context.Background(), "mission/a", core.ActivityExpand,
		func(_ context.Context, _ string) (core.Payload, error) {
			ran.Store(true)
			return core.Payload{}, nil
		},
		WithOnStart(func(int) error { return hookErr }))
	require.NoError(t, err)

	_, err = pending.Wait(context.Background())
	assert.ErrorIs(t, err, hookErr)
	assert.Equal(t, 1, pending.Attempts())
	assert.False(t, ran.Load())
}

func TestOnCompleteRunsBeforeBusyRemoval(t *testing.T) {
	s := newTestScheduler(fastConfig())

	var busyDuringComplete bool
	pending, err := s.Submit(context.Background(), "mission/a", core.ActivityExpand,
		func(_ context.Context, _ string) (core.Payload, error) {
			return core.Payload{}, nil
		},
		WithOnComplete(func(_ core.Payload, _ error, _ int) {
			busyDuringComplete = s.IsBusy("mission/a")
		}))
	require.NoError(t, err)

	_, err = pending.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, busyDuringComplete)
	assert.False(t, s.IsBusy("mission/a"))
}

func TestSubmitNilActivity(t *testing.T) {
	s := newTestScheduler(fastConfig())
	_, err := s.Submit(context.Background(), "mission/a", core.ActivityExpand, nil)
	assert.Error(t, err)
}
