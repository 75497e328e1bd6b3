// Package protect inspects decoded track artifacts for copy-protection
// signatures. It annotates tracks with non-fatal markers (long or short
// tracks, weak bits, duplicate or missing sector IDs, orphan data) and
// matches the marker set against a table of historically documented
// protection schemes. Analysis never alters sector data.
package protect
