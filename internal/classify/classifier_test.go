package classify

import (
	"reflect"
	"testing"

	"fluxdec/internal/flux"
)

// ticks converts nanoseconds to sample ticks at the given clock.
func ticks(ns float64, clockHz uint32) flux.Interval {
	return flux.Interval(ns * float64(clockHz) / 1e9)
}

const testClock = 100_000_000

func TestClassifyNominalMFMIntervals(t *testing.T) {
	cfg := PresetIBMDD()
	intervals := []flux.Interval{
		ticks(4000, testClock),
		ticks(6000, testClock),
		ticks(8000, testClock),
		ticks(4000, testClock),
	}

	res, state, err := Run(cfg, intervals, testClock)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []uint8{1, 0, 1, 0, 0, 1, 0, 0, 0, 1, 0}
	if !reflect.DeepEqual(res.Bits, want) {
		t.Errorf("bits = %v, want %v", res.Bits, want)
	}
	if state.ValidCells != 4 {
		t.Errorf("valid cells = %d, want 4", state.ValidCells)
	}
	if state.Resets != 0 {
		t.Errorf("unexpected resets: %d", state.Resets)
	}
}

func TestClassifyAdaptsToSlowDrive(t *testing.T) {
	cfg := PresetIBMDD()
	// A drive running 4% slow stretches every interval; after enough
	// samples the short-class threshold should drift upward.
	var intervals []flux.Interval
	for i := 0; i < 200; i++ {
		intervals = append(intervals, ticks(4160, testClock))
	}

	_, state, err := Run(cfg, intervals, testClock)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	th := state.Thresholds()
	if th[0] <= 4100 {
		t.Errorf("short threshold did not adapt upward: %g", th[0])
	}
	if th[0] >= 4200 {
		t.Errorf("short threshold overshot: %g", th[0])
	}
}

func TestClassifyMovingAverageWindow(t *testing.T) {
	cfg := PresetIBMDD()
	cfg.WindowRadius = 2

	intervals := []flux.Interval{
		ticks(4100, testClock),
		ticks(4100, testClock),
		ticks(4100, testClock),
	}
	_, state, err := Run(cfg, intervals, testClock)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	th := state.Thresholds()
	if th[0] < 4090 || th[0] > 4110 {
		t.Errorf("window average threshold = %g, want ~4100", th[0])
	}
}

func TestClassifyNoiseFloorSkipIsRecoverable(t *testing.T) {
	cfg := PresetIBMDD()
	intervals := []flux.Interval{
		ticks(4000, testClock),
		ticks(300, testClock), // glitch below the 1us floor
		ticks(6000, testClock),
	}

	res, state, err := Run(cfg, intervals, testClock)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.InvalidSamples != 1 {
		t.Errorf("invalid samples = %d, want 1", state.InvalidSamples)
	}
	want := []uint8{1, 0, 1, 0, 0}
	if !reflect.DeepEqual(res.Bits, want) {
		t.Errorf("bits = %v, want %v", res.Bits, want)
	}
}

func TestThresholdRunawayResetsExactlyOnce(t *testing.T) {
	cfg := PresetIBMDD()
	state, err := NewState(cfg)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	// Invert the ordering to simulate runaway adaptation.
	state.SetThresholds([]float64{8000, 6000, 4000})

	for i := 0; i < 10; i++ {
		class, _, ok := state.classify(4000)
		if !ok {
			t.Fatalf("sample %d rejected", i)
		}
		if class != 0 {
			t.Errorf("sample %d classified as %d, want 0", i, class)
		}
	}
	if state.Resets != 1 {
		t.Errorf("resets = %d, want exactly 1", state.Resets)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	cfg := PresetAmigaDD()
	var intervals []flux.Interval
	seq := []float64{4000, 6100, 7900, 4050, 6000, 8100, 3950}
	for i := 0; i < 50; i++ {
		intervals = append(intervals, ticks(seq[i%len(seq)], testClock))
	}

	first, _, err := Run(cfg, intervals, testClock)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, _, err := Run(cfg, intervals, testClock)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(first.Bits, second.Bits) {
		t.Error("repeated runs produced different bit streams")
	}
	if !reflect.DeepEqual(first.Cells, second.Cells) {
		t.Error("repeated runs produced different cell metadata")
	}
}

func TestHighDensityDoublesIntervals(t *testing.T) {
	cfg := PresetIBMDD()
	cfg.HighDensity = true
	// HD capture of a DD-profile track: raw intervals at half width.
	intervals := []flux.Interval{ticks(2000, testClock), ticks(3000, testClock)}

	res, _, err := Run(cfg, intervals, testClock)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []uint8{1, 0, 1, 0, 0}
	if !reflect.DeepEqual(res.Bits, want) {
		t.Errorf("bits = %v, want %v", res.Bits, want)
	}
}

func TestPresetC64GCRZones(t *testing.T) {
	if _, err := PresetC64GCR(0); err == nil {
		t.Error("zone 0 accepted")
	}
	if _, err := PresetC64GCR(5); err == nil {
		t.Error("zone 5 accepted")
	}
	cfg, err := PresetC64GCR(1)
	if err != nil {
		t.Fatalf("zone 1: %v", err)
	}
	if cfg.CellNS != 3250 {
		t.Errorf("zone 1 cell = %g, want 3250", cfg.CellNS)
	}
}

func TestBitEntropyMapsPositionsToCells(t *testing.T) {
	cfg := PresetIBMDD()
	intervals := []flux.Interval{ticks(4000, testClock), ticks(8200, testClock)}

	res, _, err := Run(cfg, intervals, testClock)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Bits: [1 0] from the first cell, [1 0 0 0] from the second.
	if got, want := res.BitEntropy(0), res.Cells[0].Entropy; got != want {
		t.Errorf("entropy at 0 = %g, want %g", got, want)
	}
	for pos := 2; pos < 6; pos++ {
		if got, want := res.BitEntropy(pos), res.Cells[1].Entropy; got != want {
			t.Errorf("entropy at %d = %g, want %g", pos, got, want)
		}
	}
	if res.Cells[1].Entropy == 0 {
		t.Error("off-nominal interval should carry nonzero entropy")
	}
}
