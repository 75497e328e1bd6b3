// Package catalog persists decode runs in SQLite so repeated passes
// over a collection of captures can be compared later. Each run is
// keyed by a UUID and holds per-track outcome rows. A lock file next to
// the database keeps concurrent fluxdec invocations from interleaving
// writes.
package catalog
