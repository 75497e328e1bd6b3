// Package fields walks a decoded bit-cell stream and extracts
// address/data field records.
//
// The walk is a small state machine: seek the next sync, classify the
// marker behind it, then read whichever field the marker announces. An
// address field stays cached until a data field claims it; a data field
// with no claimable address is kept as an orphan, because orphan data is
// itself a protection signal even though it can never become an
// addressable sector. Checksum failures never stop the walk; the records
// carry their validity flags so fusion and reporting can weigh failed
// attempts.
package fields
