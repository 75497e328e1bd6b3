// Package report aggregates per-track decode results into disk-level
// summary statistics and serializes them for reporting tools. The
// report is pure data derived from decode output; it never feeds back
// into the pipeline.
package report
