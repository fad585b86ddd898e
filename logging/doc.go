// Package logging provides a minimal logging interface and adapters for roundtable.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the scheduler, turn executor and runner use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ContextLogger carrying component/session attributes plus helpers for
//     model calls, turns and sessions
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	r := runner.New(llm, func(o *runner.Options) { o.Logger = logger })
//
// The interface stays minimal to avoid vendor lock-in while supporting
// structured logging where available.
package logging
