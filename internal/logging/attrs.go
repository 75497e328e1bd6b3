package logging

import "log/slog"

const (
	// FieldComponent is the standardized structured logging key for
	// component names.
	FieldComponent = "component"
	// FieldCylinder is the standardized structured logging key for the
	// physical cylinder being decoded.
	FieldCylinder = "cylinder"
	// FieldHead is the standardized structured logging key for the
	// drive head side.
	FieldHead = "head"
	// FieldScheme is the standardized structured logging key for the
	// encoding scheme in use.
	FieldScheme = "scheme"
)

// WithComponent returns a logger tagged with a component name. A nil
// logger yields a no-op logger so wiring code cannot fail.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}

// TrackAttrs returns the standard attributes for one track position.
func TrackAttrs(cylinder, head int) []any {
	return []any{
		slog.Int(FieldCylinder, cylinder),
		slog.Int(FieldHead, head),
	}
}
