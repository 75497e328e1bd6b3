// Package flux models raw magnetic-flux timing captures and normalizes
// them into per-revolution slices ready for decoding.
//
// A capture is what flux-imaging hardware produces for one physical track:
// an ordered sequence of transition intervals, a sample clock, and the
// positions where the drive's index pulse fired. Normalization splits that
// sequence at the index pulses, measures each revolution against the
// standard spindle speeds, and picks the primary revolution for a
// single-pass decode. No file I/O happens here; container readers build
// Capture values and hand them in.
package flux
