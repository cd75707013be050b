// Package logging provides a minimal logging interface and adapters for hgmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the engine, scheduler and sentinel use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - HGMeshLogger with contextual helpers (mission, node, component) and
//     domain helpers for activities and guardrail decisions
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	eng := engine.New(func(o *engine.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
