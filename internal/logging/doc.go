// Package logging assembles the structured slog loggers used across
// fluxdec tools.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes the standardized field keys so decode code tags
// log lines with cylinder, head and scheme consistently. Prefer these
// constructors over hand-rolled slog setup.
package logging
