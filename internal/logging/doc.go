// Package logging assembles the structured slog loggers used across vodbridge.
//
// It owns the console and JSON handlers, level and output plumbing, the
// standardized field keys, and context helpers that tag log lines with the
// current poll cycle and VOD. A no-op logger is provided for tests and for
// wiring code that cannot fail.
package logging
