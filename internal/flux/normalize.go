package flux

import "math"

// SpindleSpeed classifies the measured rotation rate against the two
// standard drive speeds.
type SpindleSpeed string

const (
	Speed300RPM      SpindleSpeed = "300rpm"
	Speed360RPM      SpindleSpeed = "360rpm"
	SpeedNonStandard SpindleSpeed = "nonstandard"
)

// Nominal rotation periods for the standard spindle speeds.
const (
	rotation300NS = 200_000_000.0 // 300 RPM, 200,000 us
	rotation360NS = 166_666_667.0 // 360 RPM, 166,667 us

	// speedTolerance is the relative deviation within which a measured
	// rotation still counts as the standard speed.
	speedTolerance = 0.05
)

// Revolution is one index-to-index slice of a capture's interval
// sequence.
type Revolution struct {
	Start      int
	End        int
	RotationNS float64
}

// Normalized is the revolution table produced from a raw capture plus the
// spindle-speed classification derived from it.
type Normalized struct {
	Capture     *Capture
	Revolutions []Revolution
	// Primary is the index into Revolutions selected for a single-pass
	// decode: the revolution whose rotation time sits closest to the
	// classified nominal period.
	Primary int
	Speed   SpindleSpeed
	RPM     float64
}

// Intervals returns the interval slice for one revolution. The slice
// aliases the capture and must be treated as read-only.
func (n *Normalized) Intervals(rev int) []Interval {
	r := n.Revolutions[rev]
	return n.Capture.Intervals[r.Start:r.End]
}

// PrimaryIntervals returns the interval slice of the primary revolution.
func (n *Normalized) PrimaryIntervals() []Interval {
	return n.Intervals(n.Primary)
}

// Normalize validates a capture and splits it into revolutions at the
// index pulses. With fewer than two index pulses the whole interval
// sequence is treated as a single revolution; that is an error only when
// the caller requested multi-revolution fusion (needMultiRev).
func Normalize(c *Capture, needMultiRev bool) (*Normalized, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if needMultiRev && len(c.IndexOffsets) < 2 {
		return nil, c.malformed("multi-revolution fusion requested but fewer than 2 index pulses captured")
	}

	var revs []Revolution
	if len(c.IndexOffsets) < 2 {
		revs = []Revolution{{Start: 0, End: len(c.Intervals), RotationNS: c.DurationNS(0, len(c.Intervals))}}
	} else {
		revs = make([]Revolution, 0, len(c.IndexOffsets)-1)
		for i := 1; i < len(c.IndexOffsets); i++ {
			start, end := c.IndexOffsets[i-1], c.IndexOffsets[i]
			if start == end {
				return nil, c.malformed("empty revolution between index pulses")
			}
			revs = append(revs, Revolution{Start: start, End: end, RotationNS: c.DurationNS(start, end)})
		}
	}

	n := &Normalized{Capture: c, Revolutions: revs}
	n.Speed, n.RPM = classifySpeed(meanRotation(revs))
	n.Primary = pickPrimary(revs, nominalRotation(n.Speed, n.RPM))
	return n, nil
}

func meanRotation(revs []Revolution) float64 {
	var sum float64
	for _, r := range revs {
		sum += r.RotationNS
	}
	return sum / float64(len(revs))
}

func nominalRotation(speed SpindleSpeed, rpm float64) float64 {
	switch speed {
	case Speed300RPM:
		return rotation300NS
	case Speed360RPM:
		return rotation360NS
	default:
		return 60e9 / rpm
	}
}

// StandardRotationNS returns the standard rotation period closest to the
// measured one. Track-length anomaly checks need a reference period even
// when the measured rotation falls outside speed-classification
// tolerance, which is exactly what a long or short track does.
func StandardRotationNS(measuredNS float64) float64 {
	if math.Abs(measuredNS-rotation360NS) < math.Abs(measuredNS-rotation300NS) {
		return rotation360NS
	}
	return rotation300NS
}

// classifySpeed matches a measured rotation period against the standard
// spindle speeds, falling back to the measured rate when neither fits.
func classifySpeed(rotationNS float64) (SpindleSpeed, float64) {
	if withinTolerance(rotationNS, rotation300NS) {
		return Speed300RPM, 300
	}
	if withinTolerance(rotationNS, rotation360NS) {
		return Speed360RPM, 360
	}
	return SpeedNonStandard, 60e9 / rotationNS
}

func withinTolerance(measured, nominal float64) bool {
	return math.Abs(measured-nominal) <= nominal*speedTolerance
}

func pickPrimary(revs []Revolution, nominalNS float64) int {
	best := 0
	bestDist := math.Abs(revs[0].RotationNS - nominalNS)
	for i := 1; i < len(revs); i++ {
		if d := math.Abs(revs[i].RotationNS - nominalNS); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
