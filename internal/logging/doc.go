// Package logging assembles the structured slog loggers shared by every
// argus component.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so analysis code automatically tags
// log lines with record IDs, content hashes, and request correlation IDs.
// A no-op logger is provided for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape as the rest of the system.
package logging
