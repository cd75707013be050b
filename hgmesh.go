// Package hgmesh provides a high-level façade over the coordination engine
// for expanding agent trees. Most applications interact with this package by:
//  1. Creating an HGMesh via New() (optionally overriding scheduler and
//     sentinel configuration, the alert dispatcher or the logger)
//  2. Starting one or more missions (StartMission)
//  3. Scheduling expansion and evaluation activities against mission nodes
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply an alert dispatcher and a
// structured logger.
package hgmesh

import (
	"context"

	"github.com/hupe1980/hgmesh/alerting"
	"github.com/hupe1980/hgmesh/config"
	"github.com/hupe1980/hgmesh/core"
	"github.com/hupe1980/hgmesh/engine"
	"github.com/hupe1980/hgmesh/logging"
	"github.com/hupe1980/hgmesh/scheduler"
	"github.com/hupe1980/hgmesh/sentinel"
	"github.com/hupe1980/hgmesh/tree"
)

// Options configures the HGMesh instance.
type Options struct {
	// SchedulerConfig tunes the concurrency cap, retry and backoff.
	SchedulerConfig scheduler.Config

	// SentinelConfig holds the guardrail thresholds.
	SentinelConfig sentinel.Config

	// Alerter receives one alert per guardrail pause (defaults to NoOp).
	Alerter alerting.Dispatcher

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// HGMesh is the high-level façade aggregating the engine, its scheduler and
// the sentinel monitor.
type HGMesh struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new HGMesh instance with optional overrides.
func New(optFns ...func(o *Options)) *HGMesh {
	opts := Options{
		SchedulerConfig: scheduler.DefaultConfig,
		SentinelConfig:  sentinel.DefaultConfig,
		Alerter:         alerting.NoOpDispatcher{},
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(func(o *engine.Options) {
		o.SchedulerConfig = opts.SchedulerConfig
		o.SentinelConfig = opts.SentinelConfig
		o.Alerter = opts.Alerter
		o.Logger = opts.Logger
	})

	return &HGMesh{opts: opts, engine: e}
}

// NewFromConfigFile creates an HGMesh instance from a YAML configuration
// file. Options passed after the file are applied on top of it.
func NewFromConfigFile(path string, optFns ...func(o *Options)) (*HGMesh, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger := logging.NewSlogLogger(logging.ParseLogLevel(cfg.Logging.Level), cfg.Logging.Format, false)

	fns := append([]func(o *Options){func(o *Options) {
		o.SchedulerConfig = cfg.SchedulerConfig()
		o.SentinelConfig = cfg.SentinelConfig()
		o.Logger = logger
	}}, optFns...)

	return New(fns...), nil
}

// StartMission creates a new mission root node. It is refused with
// engine.ErrPaused while the sentinel monitor is paused.
func (m *HGMesh) StartMission(id string) (*core.Node, error) {
	return m.engine.StartMission(id)
}

// ScheduleExpansion submits an expansion activity under parentID and returns
// the target node id with a handle to await or cancel it.
func (m *HGMesh) ScheduleExpansion(
	ctx context.Context,
	parentID string,
	fn core.ActivityFunc,
	optFns ...func(o *engine.ScheduleOptions),
) (string, *scheduler.Pending, error) {
	return m.engine.ScheduleExpansion(ctx, parentID, fn, optFns...)
}

// ScheduleEvaluation submits an evaluation activity for a completed node.
func (m *HGMesh) ScheduleEvaluation(
	ctx context.Context,
	nodeID string,
	fn core.EvaluateFunc,
	optFns ...func(o *engine.ScheduleOptions),
) (*scheduler.Pending, error) {
	return m.engine.ScheduleEvaluation(ctx, nodeID, fn, optFns...)
}

// Snapshot returns an immutable deep copy of all nodes keyed by id.
func (m *HGMesh) Snapshot() map[string]*core.Node { return m.engine.Snapshot() }

// BusyAgents returns the node ids with an activity currently in flight.
func (m *HGMesh) BusyAgents() []string { return m.engine.BusyAgents() }

// Errors returns the terminal error per failed node id.
func (m *HGMesh) Errors() map[string]error { return m.engine.Errors() }

// Monitor exposes the sentinel monitor for operator actions and snapshots.
func (m *HGMesh) Monitor() *sentinel.Monitor { return m.engine.Monitor() }

// Tree exposes read access to the agent tree.
func (m *HGMesh) Tree() *tree.Tree { return m.engine.Tree() }
