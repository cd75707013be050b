// Package alerting is the outbound boundary for guardrail alerts. The
// sentinel monitor emits one alert per pause transition, fire-and-forget: a
// dispatcher failure is logged by the caller and never blocks or reverts the
// pause, because operator safety must not depend on the alerting channel
// succeeding.
package alerting

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/hgmesh/logging"
)

// Alert describes a single guardrail pause decision.
type Alert struct {
	Mission    string    `json:"mission"`
	NodeID     string    `json:"node_id,omitempty"`
	Reason     string    `json:"reason"`
	ROI        float64   `json:"roi"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Dispatcher delivers alerts to an external collaborator (pager, chat,
// dashboard push). Implementations should be fast or buffer internally.
type Dispatcher interface {
	Notify(ctx context.Context, alert Alert) error
}

// NoOpDispatcher discards all alerts.
type NoOpDispatcher struct{}

// Notify implements Dispatcher.
func (NoOpDispatcher) Notify(context.Context, Alert) error { return nil }

// LogDispatcher writes alerts to a Logger. Useful as a default sink so pause
// decisions are never completely silent.
type LogDispatcher struct {
	Logger logging.Logger
}

// Notify implements Dispatcher.
func (d *LogDispatcher) Notify(_ context.Context, alert Alert) error {
	if d.Logger == nil {
		return nil
	}
	d.Logger.Warn("guardrail alert mission=%s reason=%s roi=%.4f node_id=%s",
		alert.Mission, alert.Reason, alert.ROI, alert.NodeID)
	return nil
}

// FanoutDispatcher broadcasts each alert to every registered dispatcher and
// joins their errors.
type FanoutDispatcher struct {
	dispatchers []Dispatcher
}

// NewFanout creates a FanoutDispatcher; nil entries are skipped.
func NewFanout(dispatchers ...Dispatcher) *FanoutDispatcher {
	set := make([]Dispatcher, 0, len(dispatchers))
	for _, d := range dispatchers {
		if d != nil {
			set = append(set, d)
		}
	}
	return &FanoutDispatcher{dispatchers: set}
}

// Notify implements Dispatcher.
func (d *FanoutDispatcher) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, dispatcher := range d.dispatchers {
		if err := dispatcher.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Collector records alerts in memory. Intended for tests and local
// dashboards polling Alerts().
type Collector struct {
	mu     sync.Mutex
	alerts []Alert
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector { return &Collector{} }

// Notify implements Dispatcher.
func (c *Collector) Notify(_ context.Context, alert Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
	return nil
}

// Alerts returns a copy of all recorded alerts in delivery order.
func (c *Collector) Alerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	alerts := make([]Alert, len(c.alerts))
	copy(alerts, c.alerts)
	return alerts
}
