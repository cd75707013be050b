package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/hgmesh/core"
	"github.com/hupe1980/hgmesh/logging"
)

// Config defines the retry and concurrency shape of the scheduler.
type Config struct {
	// ConcurrencyCap bounds the number of activities holding an execution
	// slot at once.
	ConcurrencyCap int

	// MaxAttempts is the total number of executions (first try included)
	// before a failure becomes terminal.
	MaxAttempts int

	// BackoffBase is the delay before the first retry; it doubles per failed
	// attempt.
	BackoffBase time.Duration

	// BackoffCap clamps the exponential backoff delay.
	BackoffCap time.Duration
}

// DefaultConfig provides conservative defaults suitable for tests and local
// development.
var DefaultConfig = Config{
	ConcurrencyCap: 4,
	MaxAttempts:    3,
	BackoffBase:    100 * time.Millisecond,
	BackoffCap:     5 * time.Second,
}

// Options configures a Scheduler instance.
type Options struct {
	// Config holds retry/concurrency tuning. Defaults to DefaultConfig.
	Config Config

	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger
}

// retryState is the externally observable retry metadata for a node whose
// activity is in flight.
type retryState struct {
	attempts    int
	nextBackoff time.Duration
}

// Scheduler dispatches activities while enforcing busy-agent avoidance and a
// global concurrency cap. See the package documentation for the model.
type Scheduler struct {
	cfg    Config
	logger logging.Logger

	// slots is the semaphore bounding concurrently executing activities.
	slots chan struct{}

	mu      sync.Mutex
	busy    map[string]core.ActivityKind // nodes holding a slot with an unsettled activity
	retries map[string]*retryState
	errs    map[string]error // terminal errors keyed by node id
}

// New creates a Scheduler.
func New(optFns ...func(o *Options)) *Scheduler {
	opts := Options{Config: DefaultConfig, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	cfg := opts.Config
	if cfg.ConcurrencyCap <= 0 {
		cfg.ConcurrencyCap = DefaultConfig.ConcurrencyCap
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultConfig.BackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = DefaultConfig.BackoffCap
	}
	return &Scheduler{
		cfg:     cfg,
		logger:  opts.Logger,
		slots:   make(chan struct{}, cfg.ConcurrencyCap),
		busy:    make(map[string]core.ActivityKind),
		retries: make(map[string]*retryState),
		errs:    make(map[string]error),
	}
}

// SubmitOptions tune a single submission.
type SubmitOptions struct {
	// Timeout bounds each individual attempt; exceeding it is treated
	// identically to activity failure (counts toward retry and streak
	// accounting). Zero means no per-attempt deadline.
	Timeout time.Duration

	// OnStart runs before every attempt, after the submission holds a slot.
	// Returning an error settles the activity immediately without retrying;
	// the engine uses it to apply state transitions in lockstep with the
	// busy set.
	OnStart func(attempt int) error

	// OnComplete runs exactly once when the activity settles, before the
	// node leaves the busy set and before Done() fires. The engine applies
	// tree mutations and monitor events here.
	OnComplete func(result core.Payload, err error, attempts int)
}

// WithTimeout sets a per-attempt deadline.
func WithTimeout(d time.Duration) func(o *SubmitOptions) {
	return func(o *SubmitOptions) { o.Timeout = d }
}

// WithOnStart registers a per-attempt hook.
func WithOnStart(fn func(attempt int) error) func(o *SubmitOptions) {
	return func(o *SubmitOptions) { o.OnStart = fn }
}

// WithOnComplete registers the settlement hook.
func WithOnComplete(fn func(result core.Payload, err error, attempts int)) func(o *SubmitOptions) {
	return func(o *SubmitOptions) { o.OnComplete = fn }
}

// Submit accepts an activity for the node and returns a Pending handle.
//
// It refuses with ErrBusy if the node already has an unsettled activity. If
// every execution slot is taken the call blocks until a slot frees or ctx
// expires. The activity context is derived from ctx, so cancelling ctx
// cancels the dispatched activity as well.
func (s *Scheduler) Submit(
	ctx context.Context,
	nodeID string,
	kind core.ActivityKind,
	fn core.ActivityFunc,
	optFns ...func(o *SubmitOptions),
) (*Pending, error) {
	if fn == nil {
		return nil, fmt.Errorf("scheduler: nil activity function for node %s", nodeID)
	}
	var opts SubmitOptions
	for _, f := range optFns {
		f(&opts)
	}

	// Fast-fail duplicate submissions before competing for a slot.
	s.mu.Lock()
	if inFlight, ok := s.busy[nodeID]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s (%s in flight)", ErrBusy, nodeID, inFlight)
	}
	s.mu.Unlock()

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Re-check under the lock: another submission for the same node may have
	// won the race while this one waited for a slot.
	s.mu.Lock()
	if inFlight, ok := s.busy[nodeID]; ok {
		s.mu.Unlock()
		<-s.slots
		return nil, fmt.Errorf("%w: %s (%s in flight)", ErrBusy, nodeID, inFlight)
	}
	s.busy[nodeID] = kind
	s.retries[nodeID] = &retryState{attempts: 0, nextBackoff: s.cfg.BackoffBase}
	s.mu.Unlock()

	actCtx, cancel := context.WithCancel(ctx)
	p := &Pending{
		nodeID: nodeID,
		kind:   kind,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.run(actCtx, cancel, p, fn, opts)

	return p, nil
}

// run drives the retry loop for one accepted activity. It owns the node's
// busy-set entry and execution slot and releases both after settlement.
func (s *Scheduler) run(ctx context.Context, cancel context.CancelFunc, p *Pending, fn core.ActivityFunc, opts SubmitOptions) {
	defer cancel()

	settle := func(result core.Payload, err error, attempts int) {
		p.result = result
		p.err = err
		p.attempts = attempts

		if opts.OnComplete != nil {
			opts.OnComplete(result, err, attempts)
		}

		s.mu.Lock()
		delete(s.busy, p.nodeID)
		delete(s.retries, p.nodeID)
		s.mu.Unlock()

		<-s.slots
		close(p.done)
	}

	attempts := 0
	backoff := s.cfg.BackoffBase
	for {
		attempts++
		s.mu.Lock()
		if rs, ok := s.retries[p.nodeID]; ok {
			rs.attempts = attempts
			rs.nextBackoff = backoff
		}
		s.mu.Unlock()

		if opts.OnStart != nil {
			if err := opts.OnStart(attempts); err != nil {
				// Programming/data error from the caller's hook; surface
				// immediately, never retry.
				settle(nil, err, attempts)
				return
			}
		}

		start := time.Now()
		result, err := s.runAttempt(ctx, p.nodeID, fn, opts.Timeout)
		if err == nil {
			s.logger.Debug("scheduler.activity succeeded node_id=%s kind=%s attempts=%d duration=%s",
				p.nodeID, p.kind, attempts, time.Since(start))
			settle(result, nil, attempts)
			return
		}

		if ctx.Err() != nil {
			// Cancelled from outside; not a failure, no retry, no terminal
			// error record.
			s.logger.Debug("scheduler.activity cancelled node_id=%s kind=%s attempts=%d", p.nodeID, p.kind, attempts)
			settle(nil, ctx.Err(), attempts)
			return
		}

		s.logger.Warn("scheduler.activity attempt failed node_id=%s kind=%s attempt=%d error=%v",
			p.nodeID, p.kind, attempts, err)

		if attempts >= s.cfg.MaxAttempts {
			terminal := fmt.Errorf("%w: node %s %s failed after %d attempts: %v",
				ErrAttemptsExhausted, p.nodeID, p.kind, attempts, err)
			s.mu.Lock()
			s.errs[p.nodeID] = terminal
			s.mu.Unlock()
			s.logger.Error("scheduler.activity terminal node_id=%s kind=%s attempts=%d error=%v",
				p.nodeID, p.kind, attempts, err)
			settle(nil, terminal, attempts)
			return
		}

		delay := backoff
		backoff *= 2
		if backoff > s.cfg.BackoffCap {
			backoff = s.cfg.BackoffCap
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			settle(nil, ctx.Err(), attempts)
			return
		}
	}
}

// runAttempt executes one attempt, applying the optional per-attempt timeout.
func (s *Scheduler) runAttempt(ctx context.Context, nodeID string, fn core.ActivityFunc, timeout time.Duration) (core.Payload, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(runCtx, nodeID)
}

// IsBusy reports whether the node has an accepted, unsettled activity.
func (s *Scheduler) IsBusy(nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.busy[nodeID]
	return ok
}

// Busy returns the ids of all nodes with an unsettled activity, sorted for
// stable inspection output.
func (s *Scheduler) Busy() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.busy))
	for id := range s.busy {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// InFlight is an alias for Busy: a node enters the set only after acquiring
// an execution slot, so its size never exceeds the concurrency cap.
func (s *Scheduler) InFlight() []string { return s.Busy() }

// Attempts returns the attempt count of the node's in-flight activity, or
// zero when nothing is in flight.
func (s *Scheduler) Attempts(nodeID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rs, ok := s.retries[nodeID]; ok {
		return rs.attempts
	}
	return 0
}

// Errors returns a copy of the terminal error mapping for external
// inspection.
func (s *Scheduler) Errors() map[string]error {
	s.mu.Lock()
	defer s.mu.Unlock()
	errs := make(map[string]error, len(s.errs))
	for id, err := range s.errs {
		errs[id] = err
	}
	return errs
}

// Config returns the scheduler's effective configuration.
func (s *Scheduler) Config() Config { return s.cfg }
