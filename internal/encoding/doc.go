// Package encoding implements the four floppy encoding families the
// pipeline understands: FM, MFM (IBM and Amiga framing), Commodore 1541
// GCR and Apple 6&2 GCR.
//
// Each family knows how to locate its sync marks in a classified bit-cell
// stream, decode data bytes out of the channel bits, and verify the
// checksums its framing carries. The variant set is closed; callers pick
// a Decoder through ForScheme or let DetectScheme infer the family from
// an interval histogram. Decoders are stateless and safe for concurrent
// use; all mutable position state lives in the caller's cursor.
//
// The encode direction (bytes back to channel bits, channel bits back to
// synthetic flux intervals) lives here too. It exists for round-trip
// verification and synthetic-capture tooling, not for writing real media.
package encoding
