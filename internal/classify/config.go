package classify

import "fmt"

// Config fixes the classifier's expectations for one track decode. The
// zero value is not usable; start from a preset or fill every field.
type Config struct {
	// CellNS is the elementary bit-cell width in nanoseconds.
	CellNS float64
	// Classes lists the expected interval widths as cell multiples, in
	// ascending order. An interval classified into class N emits one "1"
	// bit followed by N-1 "0" bits.
	Classes []int
	// NoiseFloorNS discards intervals shorter than this as read noise.
	NoiseFloorNS float64
	// HighDensity doubles every interval before classification, for
	// captures sampled in declared HD mode.
	HighDensity bool
	// AdaptRate is the exponential update rate applied to the matched
	// class threshold, in (0, 1].
	AdaptRate float64
	// WindowRadius, when positive, switches adaptation to a moving
	// average over the last 2*WindowRadius+1 matched observations. This
	// lowpass behaviour is preferred for noisy captures.
	WindowRadius int
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if c.CellNS <= 0 {
		return fmt.Errorf("classifier config: cell width must be positive, got %g", c.CellNS)
	}
	if len(c.Classes) < 2 || len(c.Classes) > 4 {
		return fmt.Errorf("classifier config: need 2-4 width classes, got %d", len(c.Classes))
	}
	for i := 1; i < len(c.Classes); i++ {
		if c.Classes[i] <= c.Classes[i-1] {
			return fmt.Errorf("classifier config: width classes must be strictly ascending")
		}
	}
	if c.Classes[0] < 1 {
		return fmt.Errorf("classifier config: width classes start at 1 cell")
	}
	if c.WindowRadius == 0 && (c.AdaptRate <= 0 || c.AdaptRate > 1) {
		return fmt.Errorf("classifier config: adapt rate %g outside (0, 1]", c.AdaptRate)
	}
	if c.WindowRadius < 0 {
		return fmt.Errorf("classifier config: negative window radius")
	}
	return nil
}

// nominalWidths returns the nominal interval width per class.
func (c Config) nominalWidths() []float64 {
	widths := make([]float64, len(c.Classes))
	for i, n := range c.Classes {
		widths[i] = c.CellNS * float64(n)
	}
	return widths
}

const defaultAdaptRate = 0.05

// PresetIBMDD covers 250 kbit/s IBM MFM (360K/720K media): 2us cell,
// intervals at 4/6/8us.
func PresetIBMDD() Config {
	return Config{CellNS: 2000, Classes: []int{2, 3, 4}, NoiseFloorNS: 1000, AdaptRate: defaultAdaptRate}
}

// PresetIBMHD covers 500 kbit/s IBM MFM (1.2M/1.44M media): 1us cell,
// intervals at 2/3/4us.
func PresetIBMHD() Config {
	return Config{CellNS: 1000, Classes: []int{2, 3, 4}, NoiseFloorNS: 500, AdaptRate: defaultAdaptRate}
}

// PresetAmigaDD covers Amiga double-density MFM, which shares the IBM DD
// 4/6/8us interval classes.
func PresetAmigaDD() Config {
	return Config{CellNS: 2000, Classes: []int{2, 3, 4}, NoiseFloorNS: 1000, AdaptRate: defaultAdaptRate}
}

// PresetFM covers single-density FM: 4us elementary cell, transitions one
// or two cells apart.
func PresetFM() Config {
	return Config{CellNS: 4000, Classes: []int{1, 2}, NoiseFloorNS: 2000, AdaptRate: defaultAdaptRate}
}

// PresetAppleGCR covers Apple II / Macintosh 6&2 GCR: 4us cell with at
// most two zero bits between transitions.
func PresetAppleGCR() Config {
	return Config{CellNS: 4000, Classes: []int{1, 2, 3}, NoiseFloorNS: 2000, AdaptRate: defaultAdaptRate}
}

// c64ZoneCellNS maps 1541 speed zone (1-4) to the elementary cell width.
// The drive spins at constant angular velocity, so outer zones clock
// faster.
var c64ZoneCellNS = [4]float64{3250, 3500, 3750, 4000}

// PresetC64GCR covers Commodore 1541 GCR for the given speed zone (1-4).
// Zone 1 is the outermost (tracks 1-17).
func PresetC64GCR(zone int) (Config, error) {
	if zone < 1 || zone > 4 {
		return Config{}, fmt.Errorf("classifier config: 1541 speed zone %d outside 1-4", zone)
	}
	cell := c64ZoneCellNS[zone-1]
	return Config{CellNS: cell, Classes: []int{1, 2, 3}, NoiseFloorNS: cell / 2, AdaptRate: defaultAdaptRate}, nil
}
