package classify

import (
	"fluxdec/internal/flux"
)

// Cell records where one classified interval landed: the width class it
// matched, the interval it came from, and how far the observed duration
// sat from the adapted threshold. Entropy is normalized to the matched
// threshold and feeds weak-bit scoring downstream.
type Cell struct {
	Width       int
	SourceIndex int
	Entropy     float64
}

// State is the per-track adaptation state. It is created fresh for each
// track decode and must not be shared across goroutines; the
// track-parallel scaling model relies on that.
type State struct {
	cfg        Config
	thresholds []float64
	nominal    []float64
	windows    [][]float64

	// Counters surfaced for diagnostics. Threshold resets and discarded
	// samples are recoverable events, never errors.
	ValidCells     int
	InvalidSamples int
	Resets         int
}

// NewState seeds adaptation state from the config's nominal widths.
func NewState(cfg Config) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &State{cfg: cfg, nominal: cfg.nominalWidths()}
	s.thresholds = make([]float64, len(s.nominal))
	copy(s.thresholds, s.nominal)
	if cfg.WindowRadius > 0 {
		s.windows = make([][]float64, len(s.nominal))
	}
	return s, nil
}

// Thresholds returns a copy of the current running thresholds.
func (s *State) Thresholds() []float64 {
	out := make([]float64, len(s.thresholds))
	copy(out, s.thresholds)
	return out
}

// SetThresholds overwrites the running thresholds. Exposed for tests that
// need to provoke the runaway-reset path.
func (s *State) SetThresholds(th []float64) {
	copy(s.thresholds, th)
}

// ordered reports whether the running thresholds are still strictly
// ascending. Adaptation on a noise burst can drag neighbouring classes
// past each other; once that happens every subsequent classification
// would be wrong, so the caller resets.
func (s *State) ordered() bool {
	for i := 1; i < len(s.thresholds); i++ {
		if s.thresholds[i] <= s.thresholds[i-1] {
			return false
		}
	}
	return true
}

func (s *State) reset() {
	copy(s.thresholds, s.nominal)
	for i := range s.windows {
		s.windows[i] = nil
	}
	s.Resets++
}

// classify assigns one observed duration to the nearest width class using
// midpoints between adjacent running thresholds, then adapts that class.
// ok is false when the sample fell below the noise floor.
func (s *State) classify(ns float64) (class int, entropy float64, ok bool) {
	if ns < s.cfg.NoiseFloorNS {
		s.InvalidSamples++
		return 0, 0, false
	}
	if !s.ordered() {
		s.reset()
	}

	class = len(s.thresholds) - 1
	for i := 0; i < len(s.thresholds)-1; i++ {
		mid := (s.thresholds[i] + s.thresholds[i+1]) / 2
		if ns < mid {
			class = i
			break
		}
	}

	entropy = ns - s.thresholds[class]
	if entropy < 0 {
		entropy = -entropy
	}
	entropy /= s.thresholds[class]
	if entropy > 1 {
		entropy = 1
	}

	s.adapt(class, ns)
	s.ValidCells++
	return class, entropy, true
}

// adapt pulls the matched class threshold toward the observation, by
// moving average when a window is configured and exponentially otherwise.
func (s *State) adapt(class int, ns float64) {
	if s.cfg.WindowRadius > 0 {
		w := append(s.windows[class], ns)
		if size := 2*s.cfg.WindowRadius + 1; len(w) > size {
			w = w[len(w)-size:]
		}
		s.windows[class] = w
		var sum float64
		for _, v := range w {
			sum += v
		}
		s.thresholds[class] = sum / float64(len(w))
		return
	}
	s.thresholds[class] += (ns - s.thresholds[class]) * s.cfg.AdaptRate
}

// Result is one revolution's classified bit-cell stream. Bits holds one
// element per emitted bit; Cells holds one element per accepted interval
// and maps bit ranges back to source intervals.
type Result struct {
	Bits  []uint8
	Cells []Cell
	// CellStart[i] is the offset in Bits where Cells[i]'s pattern
	// begins.
	CellStart []int
}

// BitEntropy returns the entropy of the cell covering bit position pos,
// or 0 when the position is out of range.
func (r *Result) BitEntropy(pos int) float64 {
	if len(r.CellStart) == 0 || pos < 0 {
		return 0
	}
	// Binary search for the covering cell.
	lo, hi := 0, len(r.CellStart)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if r.CellStart[mid] <= pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	if r.CellStart[lo] > pos {
		return 0
	}
	return r.Cells[lo].Entropy
}

// Run classifies one revolution's interval sequence into bit cells. The
// returned state carries the adaptation counters for diagnostics.
func Run(cfg Config, intervals []flux.Interval, sampleClockHz uint32) (*Result, *State, error) {
	state, err := NewState(cfg)
	if err != nil {
		return nil, nil, err
	}

	res := &Result{
		Bits:      make([]uint8, 0, len(intervals)*3),
		Cells:     make([]Cell, 0, len(intervals)),
		CellStart: make([]int, 0, len(intervals)),
	}
	tickNS := 1e9 / float64(sampleClockHz)
	for i, iv := range intervals {
		ns := float64(iv) * tickNS
		if cfg.HighDensity {
			ns *= 2
		}
		class, entropy, ok := state.classify(ns)
		if !ok {
			continue
		}
		width := cfg.Classes[class]
		res.CellStart = append(res.CellStart, len(res.Bits))
		res.Cells = append(res.Cells, Cell{Width: width, SourceIndex: i, Entropy: entropy})
		res.Bits = append(res.Bits, 1)
		for z := 1; z < width; z++ {
			res.Bits = append(res.Bits, 0)
		}
	}
	return res, state, nil
}
