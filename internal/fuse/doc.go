// Package fuse reconciles independently decoded revolutions of the same
// physical track.
//
// Two jobs: pick the best candidate per logical sector by a fixed
// scoring rule with a deterministic earliest-revolution tiebreak, and
// compare classified bit cells across revolutions to locate weak bits.
// Small disagreement counts are ordinary read noise; only past a
// configurable threshold does the track count as carrying weak bits.
// Inputs are read-only; fusion builds new output rather than mutating
// revolution data, so callers stay free to decode tracks in parallel.
package fuse
