package flux

import (
	"errors"
	"fmt"
)

// Interval is the duration between two flux transitions, in ticks of the
// owning capture's sample clock. Zero-length intervals are invalid input.
type Interval uint32

// ErrMalformedCapture marks structurally invalid capture input. Errors
// returned for such input wrap this sentinel so callers can test with
// errors.Is.
var ErrMalformedCapture = errors.New("malformed capture")

// MalformedCaptureError describes why a capture failed structural
// validation. It is fatal for the track being decoded; the pipeline never
// returns partial results alongside it.
type MalformedCaptureError struct {
	Cylinder int
	Head     int
	Reason   string
}

func (e *MalformedCaptureError) Error() string {
	return fmt.Sprintf("capture cyl %d head %d: %s", e.Cylinder, e.Head, e.Reason)
}

func (e *MalformedCaptureError) Unwrap() error { return ErrMalformedCapture }

// Capture holds the flux transition timings read from one physical
// (cylinder, head) track, possibly spanning several revolutions.
//
// IndexOffsets are positions into Intervals where the physical index mark
// occurred; they must be strictly increasing and never exceed
// len(Intervals). The capture is owned by the caller and passed by
// reference into the pipeline; decoding never mutates it.
type Capture struct {
	Cylinder      int
	Head          int
	SampleClockHz uint32
	Intervals     []Interval
	IndexOffsets  []int
}

// Validate checks the structural invariants every pipeline stage relies
// on. It returns a *MalformedCaptureError describing the first violation
// found, or nil.
func (c *Capture) Validate() error {
	if c.SampleClockHz == 0 {
		return c.malformed("sample clock is zero")
	}
	if len(c.Intervals) == 0 {
		return c.malformed("empty interval array")
	}
	for i, iv := range c.Intervals {
		if iv == 0 {
			return c.malformed(fmt.Sprintf("zero-length interval at position %d", i))
		}
	}
	prev := -1
	for i, off := range c.IndexOffsets {
		if off < 0 || off > len(c.Intervals) {
			return c.malformed(fmt.Sprintf("index offset %d out of range at position %d", off, i))
		}
		if off <= prev {
			return c.malformed(fmt.Sprintf("index offsets not strictly increasing at position %d", i))
		}
		prev = off
	}
	return nil
}

func (c *Capture) malformed(reason string) error {
	return &MalformedCaptureError{Cylinder: c.Cylinder, Head: c.Head, Reason: reason}
}

// IntervalNS converts an interval to nanoseconds using the capture's
// sample clock.
func (c *Capture) IntervalNS(iv Interval) float64 {
	return float64(iv) * 1e9 / float64(c.SampleClockHz)
}

// DurationNS sums the intervals in [from, to) and converts to
// nanoseconds.
func (c *Capture) DurationNS(from, to int) float64 {
	var ticks uint64
	for _, iv := range c.Intervals[from:to] {
		ticks += uint64(iv)
	}
	return float64(ticks) * 1e9 / float64(c.SampleClockHz)
}
