// Package config loads file-based configuration for hgmesh. In-process
// construction uses functional options; this package exists for deployments
// that prefer a YAML file over code. Durations are expressed in
// milliseconds so config files stay free of unit-string parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/hgmesh/scheduler"
	"github.com/hupe1980/hgmesh/sentinel"
)

// Config mirrors the YAML configuration file.
type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Sentinel  SentinelConfig  `yaml:"sentinel"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SchedulerConfig tunes dispatch, retry and backoff.
type SchedulerConfig struct {
	ConcurrencyCap int   `yaml:"concurrency_cap"`
	MaxAttempts    int   `yaml:"max_attempts"`
	BackoffBaseMs  int64 `yaml:"backoff_base_ms"`
	BackoffCapMs   int64 `yaml:"backoff_cap_ms"`
}

// SentinelConfig holds the guardrail thresholds.
type SentinelConfig struct {
	ROIFloor      float64 `yaml:"roi_floor"`
	MaxFailures   int     `yaml:"max_failures"`
	PauseWindowMs int64   `yaml:"pause_window_ms"`
	AssumedCost   float64 `yaml:"assumed_cost"`
	CascadePrune  bool    `yaml:"cascade_prune"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Default returns a Config mirroring the package-level defaults of the
// scheduler and sentinel packages.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			ConcurrencyCap: scheduler.DefaultConfig.ConcurrencyCap,
			MaxAttempts:    scheduler.DefaultConfig.MaxAttempts,
			BackoffBaseMs:  scheduler.DefaultConfig.BackoffBase.Milliseconds(),
			BackoffCapMs:   scheduler.DefaultConfig.BackoffCap.Milliseconds(),
		},
		Sentinel: SentinelConfig{
			ROIFloor:      sentinel.DefaultConfig.ROIFloor,
			MaxFailures:   sentinel.DefaultConfig.MaxFailures,
			PauseWindowMs: sentinel.DefaultConfig.PauseWindow.Milliseconds(),
			AssumedCost:   sentinel.DefaultConfig.AssumedCost,
			CascadePrune:  sentinel.DefaultConfig.CascadePrune,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load parses the YAML configuration file at path. Absent keys keep their
// defaults; present keys are validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: empty path")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the scheduler or sentinel cannot operate with.
func (c *Config) Validate() error {
	if c.Scheduler.ConcurrencyCap <= 0 {
		return fmt.Errorf("scheduler.concurrency_cap must be positive, got %d", c.Scheduler.ConcurrencyCap)
	}
	if c.Scheduler.MaxAttempts <= 0 {
		return fmt.Errorf("scheduler.max_attempts must be positive, got %d", c.Scheduler.MaxAttempts)
	}
	if c.Scheduler.BackoffBaseMs <= 0 {
		return fmt.Errorf("scheduler.backoff_base_ms must be positive, got %d", c.Scheduler.BackoffBaseMs)
	}
	if c.Scheduler.BackoffCapMs < c.Scheduler.BackoffBaseMs {
		return fmt.Errorf("scheduler.backoff_cap_ms (%d) must not be below backoff_base_ms (%d)",
			c.Scheduler.BackoffCapMs, c.Scheduler.BackoffBaseMs)
	}
	if c.Sentinel.MaxFailures <= 0 {
		return fmt.Errorf("sentinel.max_failures must be positive, got %d", c.Sentinel.MaxFailures)
	}
	if c.Sentinel.PauseWindowMs < 0 {
		return fmt.Errorf("sentinel.pause_window_ms must not be negative, got %d", c.Sentinel.PauseWindowMs)
	}
	return nil
}

// SchedulerConfig converts the file representation into the scheduler's
// native config.
func (c *Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		ConcurrencyCap: c.Scheduler.ConcurrencyCap,
		MaxAttempts:    c.Scheduler.MaxAttempts,
		BackoffBase:    time.Duration(c.Scheduler.BackoffBaseMs) * time.Millisecond,
		BackoffCap:     time.Duration(c.Scheduler.BackoffCapMs) * time.Millisecond,
	}
}

// SentinelConfig converts the file representation into the sentinel's native
// config.
func (c *Config) SentinelConfig() sentinel.Config {
	return sentinel.Config{
		ROIFloor:     c.Sentinel.ROIFloor,
		MaxFailures:  c.Sentinel.MaxFailures,
		PauseWindow:  time.Duration(c.Sentinel.PauseWindowMs) * time.Millisecond,
		AssumedCost:  c.Sentinel.AssumedCost,
		CascadePrune: c.Sentinel.CascadePrune,
	}
}
