// Package logging assembles the structured slog loggers used by annofuse
// commands and batch workflows.
//
// It owns the console and JSON handlers, level and output plumbing, per-run
// log files, and context helpers that tag log lines with the run id, command,
// and capture being processed. A no-op logger is available for tests and
// wiring code that cannot fail.
package logging
