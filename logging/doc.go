// Package logging provides a minimal logging interface and adapters for miniagent.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the agent, tool registry and event bus use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - EventHandler, an event bus observer that logs lifecycle events
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	bus := eventbus.New(func(o *eventbus.Options) { o.Logger = logger })
//	bus.SubscribeAll(logging.EventHandler(logger))
package logging
