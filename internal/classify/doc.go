// Package classify converts flux transition intervals into bit cells
// without assuming a fixed oscillator.
//
// Each encoding family defines a small set of canonical interval widths
// expressed as multiples of the elementary bit cell (MFM sees 2, 3 and 4
// cells between transitions; GCR sees 1 to 3). The classifier keeps a
// running threshold per width class, seeded from the preset's nominal
// values and pulled toward what the drive actually produced, so it
// tolerates spindle speed variance and long-term drift within a track.
// Adaptation state lives in a State value created fresh per track; the
// package holds no globals and the classification is fully deterministic
// for a given input and configuration.
package classify
