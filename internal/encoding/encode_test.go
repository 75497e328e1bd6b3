package encoding

import "testing"

func TestBitsToFluxKeepsTrailingZeroCells(t *testing.T) {
	const (
		cellNS = 2000.0
		clock  = 40_000_000
	)
	bits := []uint8{1, 0, 0, 1, 0, 0, 0}
	out := BitsToFlux(bits, cellNS, clock)
	if len(out) != 3 {
		t.Fatalf("intervals = %d, want 3 (closing transition missing)", len(out))
	}
	var total uint64
	for _, iv := range out {
		total += uint64(iv)
	}
	cellTicks := uint64(cellNS * clock / 1e9)
	if want := uint64(len(bits)) * cellTicks; total != want {
		t.Errorf("total ticks = %d, want %d", total, want)
	}
}

func TestAmigaTrackTailSurvivesFluxConversion(t *testing.T) {
	sectors := make([][]byte, 11)
	for i := range sectors {
		sectors[i] = fill(byte(i), 512)
	}
	bits, err := BuildAmigaTrack(0, 0, sectors)
	if err != nil {
		t.Fatal(err)
	}
	intervals := BitsToFlux(bits, 2000, 40_000_000)
	var total uint64
	for _, iv := range intervals {
		total += uint64(iv)
	}
	cellTicks := uint64(2000 * 40_000_000 / 1e9)
	if want := uint64(len(bits)) * cellTicks; total != want {
		t.Errorf("flux stream covers %d ticks, want %d (%d cells)", total, want, len(bits))
	}
}
