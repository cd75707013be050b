package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/hgmesh/alerting"
	"github.com/hupe1980/hgmesh/core"
	"github.com/hupe1980/hgmesh/logging"
	"github.com/hupe1980/hgmesh/scheduler"
	"github.com/hupe1980/hgmesh/sentinel"
	"github.com/hupe1980/hgmesh/tree"
)

// ErrPaused is returned by StartMission while the sentinel monitor is
// Paused. Recoverable: the operator resumes the monitor and retries.
var ErrPaused = errors.New("sentinel monitor is paused")

// Options configures an Engine instance using the functional options
// pattern. All services have in-memory defaults so an engine is immediately
// usable in tests and local development; multiple independent engines can
// coexist because no state is ambient.
type Options struct {
	// SchedulerConfig tunes retry/backoff and the concurrency cap.
	SchedulerConfig scheduler.Config

	// SentinelConfig holds the guardrail thresholds.
	SentinelConfig sentinel.Config

	// Alerter receives one alert per guardrail pause. Defaults to a
	// NoOpDispatcher.
	Alerter alerting.Dispatcher

	// Logger defaults to NoOp logger if nil.
	Logger logging.Logger
}

// Engine coordinates the expanding agent tree: it accepts expansion and
// evaluation requests, serializes all tree mutation through the tree's lock
// and feeds every completion to the sentinel monitor.
type Engine struct {
	tree    *tree.Tree
	sched   *scheduler.Scheduler
	monitor *sentinel.Monitor
	logger  logging.Logger
}

// New creates an Engine with its own tree, scheduler and sentinel monitor.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		SchedulerConfig: scheduler.DefaultConfig,
		SentinelConfig:  sentinel.DefaultConfig,
		Alerter:         alerting.NoOpDispatcher{},
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{
		tree: tree.New(func(o *tree.Options) {
			o.Logger = opts.Logger
		}),
		sched: scheduler.New(func(o *scheduler.Options) {
			o.Config = opts.SchedulerConfig
			o.Logger = opts.Logger
		}),
		monitor: sentinel.New(func(o *sentinel.Options) {
			o.Config = opts.SentinelConfig
			o.Alerter = opts.Alerter
			o.Logger = opts.Logger
		}),
		logger: opts.Logger,
	}
}

// ScheduleOptions tune a single expansion or evaluation submission.
type ScheduleOptions struct {
	// NodeID targets an existing node instead of creating a fresh child
	// (re-expansion of a Pending node, or any evaluation).
	NodeID string

	// Timeout bounds each activity attempt; exceeding it counts as a
	// failure.
	Timeout time.Duration
}

// WithNodeID targets an existing node.
func WithNodeID(id string) func(o *ScheduleOptions) {
	return func(o *ScheduleOptions) { o.NodeID = id }
}

// WithTimeout sets a per-attempt deadline for the activity.
func WithTimeout(d time.Duration) func(o *ScheduleOptions) {
	return func(o *ScheduleOptions) { o.Timeout = d }
}

// StartMission creates a new mission root node. It is refused with ErrPaused
// while the sentinel monitor is Paused: a pause is advisory to the scheduler
// and gates new top-level missions without disturbing in-flight work.
func (e *Engine) StartMission(id string) (*core.Node, error) {
	if e.monitor.Paused() {
		snapshot := e.monitor.Snapshot()
		return nil, fmt.Errorf("%w: %s", ErrPaused, snapshot.PauseReason)
	}
	node, err := e.tree.CreateRoot(id)
	if err != nil {
		return nil, err
	}
	e.logger.Info("engine.mission started mission=%s node_id=%s", core.MissionOf(id), id)
	return node, nil
}

// ScheduleExpansion submits an expansion activity. Without WithNodeID a
// fresh Pending child of parentID is created; with it, the named Pending
// node is re-expanded.
//
// Duplicate submissions for a busy node are surfaced as a warning no-op: the
// returned error wraps scheduler.ErrBusy, the in-flight activity is
// unaffected and no state changes.
func (e *Engine) ScheduleExpansion(
	ctx context.Context,
	parentID string,
	fn core.ActivityFunc,
	optFns ...func(o *ScheduleOptions),
) (string, *scheduler.Pending, error) {
	var opts ScheduleOptions
	for _, f := range optFns {
		f(&opts)
	}

	nodeID := opts.NodeID
	if nodeID == "" {
		node, err := e.tree.CreateChild(parentID)
		if err != nil {
			return "", nil, err
		}
		nodeID = node.ID
	} else if err := e.checkSchedulable(nodeID); err != nil {
		return "", nil, err
	}

	pending, err := e.submit(ctx, nodeID, core.ActivityExpand, fn, opts, e.tree.MarkExpanding, e.completeExpansion)
	if err != nil {
		return "", nil, err
	}
	return nodeID, pending, nil
}

// ScheduleEvaluation submits an evaluation activity for a completed (Done)
// node. The reward is recorded on the node and forwarded to the sentinel
// monitor as an evaluation event. Duplicate submissions follow the same
// no-op-with-warning contract as ScheduleExpansion.
func (e *Engine) ScheduleEvaluation(
	ctx context.Context,
	nodeID string,
	fn core.EvaluateFunc,
	optFns ...func(o *ScheduleOptions),
) (*scheduler.Pending, error) {
	var opts ScheduleOptions
	for _, f := range optFns {
		f(&opts)
	}
	if err := e.checkSchedulable(nodeID); err != nil {
		return nil, err
	}

	activity := func(ctx context.Context, id string) (core.Payload, error) {
		reward, err := fn(ctx, id)
		if err != nil {
			return nil, err
		}
		return core.RewardPayload(reward), nil
	}

	return e.submit(ctx, nodeID, core.ActivityEvaluate, activity, opts, e.tree.MarkEvaluating, e.completeEvaluation)
}

// checkSchedulable rejects targets the tree no longer accepts work for.
func (e *Engine) checkSchedulable(nodeID string) error {
	node, ok := e.tree.Get(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", tree.ErrNodeNotFound, nodeID)
	}
	if node.State == core.StatePruned {
		return fmt.Errorf("%w: %s", tree.ErrNodePruned, nodeID)
	}
	return nil
}

// submit wires one activity into the scheduler with the engine's start and
// completion hooks. mark is applied under the tree lock on the first attempt
// so node state and the scheduler's busy set move together.
func (e *Engine) submit(
	ctx context.Context,
	nodeID string,
	kind core.ActivityKind,
	fn core.ActivityFunc,
	opts ScheduleOptions,
	mark func(id string) error,
	complete func(nodeID string, result core.Payload, err error),
) (*scheduler.Pending, error) {
	submitOpts := []func(o *scheduler.SubmitOptions){
		scheduler.WithOnStart(func(attempt int) error {
			if attempt == 1 {
				if err := mark(nodeID); err != nil {
					return err
				}
			}
			return e.tree.SetAttempts(nodeID, attempt)
		}),
		scheduler.WithOnComplete(func(result core.Payload, err error, attempts int) {
			complete(nodeID, result, err)
		}),
	}
	if opts.Timeout > 0 {
		submitOpts = append(submitOpts, scheduler.WithTimeout(opts.Timeout))
	}

	pending, err := e.sched.Submit(ctx, nodeID, kind, fn, submitOpts...)
	if err != nil {
		if errors.Is(err, scheduler.ErrBusy) {
			e.logger.Warn("engine.submission skipped, node busy node_id=%s kind=%s", nodeID, kind)
		}
		return nil, err
	}
	e.logger.Debug("engine.submission accepted node_id=%s kind=%s", nodeID, kind)
	return pending, nil
}

// completeExpansion applies an expansion settlement to the tree and forwards
// the event to the monitor. Runs inside the scheduler's completion hook, so
// the node is still busy while state is applied.
func (e *Engine) completeExpansion(nodeID string, result core.Payload, err error) {
	switch {
	case err == nil:
		if recordErr := e.tree.RecordExpansion(nodeID, result); recordErr != nil {
			e.logger.Error("engine.record expansion failed node_id=%s error=%v", nodeID, recordErr)
			return
		}
		e.applyDecision(e.monitor.ObserveExpansion(nodeID, result))

	case errors.Is(err, context.Canceled):
		// A cancelled node returns to Pending, not Failed; it stays eligible
		// for resubmission and does not feed the failure streak.
		if undoErr := e.tree.ReturnToPrior(nodeID); undoErr != nil {
			e.logger.Error("engine.cancel rollback failed node_id=%s error=%v", nodeID, undoErr)
		}

	case isTreeError(err):
		// Start-hook transition errors are programming/data errors; they are
		// surfaced to the caller via the Pending handle but never counted as
		// activity failures.
		e.logger.Error("engine.expansion rejected node_id=%s error=%v", nodeID, err)

	default:
		if failErr := e.tree.RecordFailure(nodeID); failErr != nil {
			e.logger.Error("engine.record failure failed node_id=%s error=%v", nodeID, failErr)
			return
		}
		e.applyDecision(e.monitor.ObserveExpansion(nodeID, core.FailurePayload(err)))
	}
}

// isTreeError reports whether the settlement error came from a tree
// transition rather than the activity itself.
func isTreeError(err error) bool {
	return errors.Is(err, tree.ErrInvalidTransition) ||
		errors.Is(err, tree.ErrNodePruned) ||
		errors.Is(err, tree.ErrNodeNotFound)
}

// completeEvaluation mirrors completeExpansion for the evaluation activity.
func (e *Engine) completeEvaluation(nodeID string, result core.Payload, err error) {
	switch {
	case err == nil:
		reward, ok := result.Reward()
		if !ok {
			e.logger.Error("engine.evaluation result missing reward node_id=%s", nodeID)
			return
		}
		if recordErr := e.tree.RecordEvaluation(nodeID, reward); recordErr != nil {
			e.logger.Error("engine.record evaluation failed node_id=%s error=%v", nodeID, recordErr)
			return
		}
		e.applyDecision(e.monitor.ObserveEvaluation(nodeID, result))

	case errors.Is(err, context.Canceled):
		if undoErr := e.tree.ReturnToPrior(nodeID); undoErr != nil {
			e.logger.Error("engine.cancel rollback failed node_id=%s error=%v", nodeID, undoErr)
		}

	case isTreeError(err):
		e.logger.Error("engine.evaluation rejected node_id=%s error=%v", nodeID, err)

	default:
		if failErr := e.tree.RecordFailure(nodeID); failErr != nil {
			e.logger.Error("engine.record failure failed node_id=%s error=%v", nodeID, failErr)
			return
		}
		e.applyDecision(e.monitor.ObserveEvaluation(nodeID, core.FailurePayload(err)))
	}
}

// applyDecision turns a guardrail decision into tree mutations. Pruned nodes
// leave scheduling eligibility permanently; the pause itself is enforced at
// StartMission and needs no action here beyond logging.
func (e *Engine) applyDecision(decision sentinel.Decision) {
	for _, id := range decision.Prune {
		pruned, err := e.tree.Prune(id, decision.Cascade)
		if err != nil {
			e.logger.Error("engine.prune failed node_id=%s error=%v", id, err)
			continue
		}
		e.logger.Warn("engine.pruned mission=%s reason=%s nodes=%v", decision.Mission, decision.Reason, pruned)
	}
	if decision.Paused {
		e.logger.Warn("engine.paused mission=%s reason=%s", decision.Mission, decision.Reason)
	}
}

// Snapshot returns an immutable deep copy of all nodes keyed by id.
func (e *Engine) Snapshot() map[string]*core.Node { return e.tree.Snapshot() }

// BusyAgents returns the node ids with an activity in flight, delegated from
// the scheduler.
func (e *Engine) BusyAgents() []string { return e.sched.Busy() }

// Errors returns the scheduler's terminal error mapping.
func (e *Engine) Errors() map[string]error { return e.sched.Errors() }

// Monitor exposes the sentinel monitor for operator actions (Resume) and
// dashboard snapshots.
func (e *Engine) Monitor() *sentinel.Monitor { return e.monitor }

// Tree exposes read access to the agent tree.
func (e *Engine) Tree() *tree.Tree { return e.tree }
