// Package logging assembles structured slog loggers and formatting helpers used
// across cutroom.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so backend calls and progress streams
// automatically tag log lines with the project, block and request they serve.
// The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
