package sentinel

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/hgmesh/alerting"
	"github.com/hupe1980/hgmesh/core"
	"github.com/hupe1980/hgmesh/logging"
)

// State names the monitor's pause state machine states.
type State string

const (
	// StateActive is the initial state; scheduling proceeds normally.
	StateActive State = "active"
	// StatePaused means a guardrail threshold was crossed.
	StatePaused State = "paused"
)

// Pause reasons carried in alerts and snapshots.
const (
	// ReasonROIFloor marks a pause caused by mission ROI falling below the
	// configured floor.
	ReasonROIFloor = "roi-floor-breached"
	// ReasonFailureStreak marks a pause caused by consecutive failures
	// reaching the configured maximum.
	ReasonFailureStreak = "failure-streak"
)

// Decision is the guardrail outcome of one observed event. It is advisory:
// the engine applies prunes to the tree and gates new mission starts while
// Paused, but never aborts in-flight work.
type Decision struct {
	Paused  bool
	Reason  string
	Mission string
	// Prune lists node ids the guardrail removed from scheduling
	// eligibility.
	Prune []string
	// Cascade asks the tree to extend the prune to unvisited descendants.
	Cascade bool
}

// Snapshot is a point-in-time, read-only copy of the monitor state, safe to
// hand to dashboards without locking.
type Snapshot struct {
	State       State              `json:"state"`
	PauseReason string             `json:"pause_reason,omitempty"`
	PausedAt    time.Time          `json:"paused_at,omitzero"`
	ROI         map[string]float64 `json:"roi"`
	Failures    map[string]int     `json:"failures"`
	Pruned      []string           `json:"pruned,omitempty"`
}

// Options configures a Monitor instance.
type Options struct {
	// Config holds the guardrail thresholds. Defaults to DefaultConfig.
	Config Config

	// Alerter receives one alert per pause transition. Defaults to
	// NoOpDispatcher.
	Alerter alerting.Dispatcher

	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger
}

// Monitor accumulates ROI signals and guards them with pause/prune
// decisions. Observe entry points are serialized by an internal mutex so
// events are applied in observation order; external callers only ever read
// copies.
type Monitor struct {
	cfg     Config
	alerter alerting.Dispatcher
	logger  logging.Logger

	mu          sync.Mutex
	roi         map[string]float64
	failures    map[string]int
	pruned      map[string]struct{}
	paused      bool
	pauseReason string
	pausedAt    time.Time
	now         func() time.Time
}

// New creates a Monitor in the Active state.
func New(optFns ...func(o *Options)) *Monitor {
	opts := Options{
		Config:  DefaultConfig,
		Alerter: alerting.NoOpDispatcher{},
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Monitor{
		cfg:      opts.Config,
		alerter:  opts.Alerter,
		logger:   opts.Logger,
		roi:      make(map[string]float64),
		failures: make(map[string]int),
		pruned:   make(map[string]struct{}),
		now:      time.Now,
	}
}

// ObserveExpansion records an expansion event. Expansions carry no ROI
// signal, but a payload marked as failed counts toward the mission's failure
// streak and can trigger a streak pause.
func (m *Monitor) ObserveExpansion(nodeID string, payload core.Payload) Decision {
	m.mu.Lock()
	mission := core.MissionOf(nodeID)

	var decision Decision
	if _, failed := payload.Failure(); failed {
		decision = m.recordFailure(mission, nodeID)
	} else {
		m.failures[mission] = 0
	}
	var alert *alerting.Alert
	if decision.Paused {
		alert = m.alertFor(decision, nodeID)
	}
	m.mu.Unlock()

	m.dispatch(alert)
	return decision
}

// ObserveEvaluation records an evaluation event: it extracts the reward,
// updates the mission ROI accumulator (roi += reward - assumedCost) and
// re-evaluates the guardrails.
func (m *Monitor) ObserveEvaluation(nodeID string, payload core.Payload) Decision {
	m.mu.Lock()
	mission := core.MissionOf(nodeID)

	var decision Decision
	if _, failed := payload.Failure(); failed {
		decision = m.recordFailure(mission, nodeID)
	} else if reward, ok := payload.Reward(); ok {
		m.failures[mission] = 0
		m.roi[mission] += reward - m.cfg.AssumedCost
		if m.roi[mission] < m.cfg.ROIFloor && !m.paused {
			m.pause(ReasonROIFloor)
			decision = Decision{Paused: true, Reason: ReasonROIFloor, Mission: mission}
		}
	} else {
		m.logger.Warn("sentinel.evaluation without reward node_id=%s", nodeID)
	}
	var alert *alerting.Alert
	if decision.Paused {
		alert = m.alertFor(decision, nodeID)
	}
	m.mu.Unlock()

	m.dispatch(alert)
	return decision
}

// recordFailure bumps the mission streak and fires the streak guardrail once
// the configured maximum is reached. Caller holds m.mu.
func (m *Monitor) recordFailure(mission, nodeID string) Decision {
	m.failures[mission]++
	if m.failures[mission] < m.cfg.MaxFailures || m.paused {
		return Decision{Mission: mission}
	}
	m.pause(ReasonFailureStreak)
	m.pruned[nodeID] = struct{}{}
	return Decision{
		Paused:  true,
		Reason:  ReasonFailureStreak,
		Mission: mission,
		Prune:   []string{nodeID},
		Cascade: m.cfg.CascadePrune,
	}
}

// pause transitions Active -> Paused. Caller holds m.mu.
func (m *Monitor) pause(reason string) {
	m.paused = true
	m.pauseReason = reason
	m.pausedAt = m.now()
}

// alertFor builds the pause alert while the lock is still held so the ROI
// value matches the decision. Caller holds m.mu.
func (m *Monitor) alertFor(decision Decision, nodeID string) *alerting.Alert {
	return &alerting.Alert{
		Mission:    decision.Mission,
		NodeID:     nodeID,
		Reason:     decision.Reason,
		ROI:        m.roi[decision.Mission],
		OccurredAt: m.pausedAt,
	}
}

// dispatch delivers a pause alert fire-and-forget: a delivery failure is
// logged and the pause state stands regardless.
func (m *Monitor) dispatch(alert *alerting.Alert) {
	if alert == nil {
		return
	}
	m.logger.Warn("sentinel.paused mission=%s reason=%s roi=%.4f", alert.Mission, alert.Reason, alert.ROI)
	if err := m.alerter.Notify(context.Background(), *alert); err != nil {
		m.logger.Error("sentinel.alert delivery failed mission=%s reason=%s error=%v",
			alert.Mission, alert.Reason, err)
	}
}

// Resume transitions Paused -> Active. It is refused with
// ErrPauseWindowActive while the cool-down window has not elapsed.
func (m *Monitor) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.paused {
		return ErrNotPaused
	}
	elapsed := m.now().Sub(m.pausedAt)
	if elapsed < m.cfg.PauseWindow {
		return fmt.Errorf("%w: %s remaining", ErrPauseWindowActive, m.cfg.PauseWindow-elapsed)
	}
	m.paused = false
	m.pauseReason = ""
	m.logger.Info("sentinel.resumed after %s", elapsed)
	return nil
}

// Paused reports whether the monitor is in the Paused state.
func (m *Monitor) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// State returns the current pause state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused {
		return StatePaused
	}
	return StateActive
}

// IsPruned reports whether a guardrail decision pruned the node.
func (m *Monitor) IsPruned(nodeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pruned[nodeID]
	return ok
}

// ROI returns the current ROI accumulator for a mission.
func (m *Monitor) ROI(mission string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roi[mission]
}

// Snapshot returns a deep copy of the monitor state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := Snapshot{
		State:    StateActive,
		ROI:      make(map[string]float64, len(m.roi)),
		Failures: make(map[string]int, len(m.failures)),
	}
	if m.paused {
		snapshot.State = StatePaused
		snapshot.PauseReason = m.pauseReason
		snapshot.PausedAt = m.pausedAt
	}
	for mission, roi := range m.roi {
		snapshot.ROI[mission] = roi
	}
	for mission, count := range m.failures {
		snapshot.Failures[mission] = count
	}
	for id := range m.pruned {
		snapshot.Pruned = append(snapshot.Pruned, id)
	}
	sort.Strings(snapshot.Pruned)
	return snapshot
}

// Config returns the monitor's effective configuration.
func (m *Monitor) Config() Config { return m.cfg }
