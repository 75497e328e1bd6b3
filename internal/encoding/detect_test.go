package encoding

import (
	"testing"
)

const detectClock = 24_027_428

func trackFlux(t *testing.T, scheme Scheme) []uint8 {
	t.Helper()
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i*13 + 7)
	}
	switch scheme {
	case SchemeFM:
		bits, err := BuildFMTrack(0, 0, 1, [][]byte{data})
		if err != nil {
			t.Fatal(err)
		}
		return bits
	case SchemeMFM:
		bits, err := BuildIBMMFMTrack(0, 0, 1, [][]byte{data})
		if err != nil {
			t.Fatal(err)
		}
		return bits
	case SchemeGCRC64:
		bits, err := BuildC64Track(10, 0x30, 0x31, [][]byte{data})
		if err != nil {
			t.Fatal(err)
		}
		return bits
	case SchemeGCRApple:
		bits, err := BuildAppleTrack(254, 10, [][]byte{data})
		if err != nil {
			t.Fatal(err)
		}
		return bits
	}
	t.Fatalf("no builder for %s", scheme)
	return nil
}

func TestDetectScheme(t *testing.T) {
	tests := []struct {
		scheme Scheme
		cellNS float64
	}{
		{SchemeFM, 4000},
		{SchemeMFM, 2000},
		{SchemeGCRC64, 3250},
		{SchemeGCRApple, 4000},
	}
	for _, tc := range tests {
		t.Run(string(tc.scheme), func(t *testing.T) {
			bits := trackFlux(t, tc.scheme)
			intervals := BitsToFlux(bits, tc.cellNS, detectClock)
			got := DetectScheme(intervals, detectClock, 2000)
			if got != tc.scheme {
				t.Errorf("detected %s, want %s", got, tc.scheme)
			}
		})
	}
}

func TestDetectSchemeEmptyInputDefaultsToMFM(t *testing.T) {
	if got := DetectScheme(nil, detectClock, 2000); got != SchemeMFM {
		t.Errorf("got %s, want mfm fallback", got)
	}
}
