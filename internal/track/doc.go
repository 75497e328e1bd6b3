// Package track assembles the full flux-to-sector pipeline. Decode takes
// one track's flux capture through normalization, bit-cell
// classification, encoding-specific field decoding, multi-revolution
// fusion and protection analysis, and returns the ordered sector set
// with validity and confidence metadata.
//
// One Decode call owns all of its intermediate state, so callers may run
// one call per physical track concurrently without locking.
package track
