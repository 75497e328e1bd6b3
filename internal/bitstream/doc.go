// Package bitstream provides bounds-checked cursors over decoded bit-cell
// streams. Every read is fallible; running off the end returns
// ErrEndOfStream instead of wrapping or panicking, which is what lets the
// sync scanners treat "no more data" as end-of-track.
package bitstream
