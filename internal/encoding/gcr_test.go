package encoding

import (
	"bytes"
	"testing"

	"fluxdec/internal/bitstream"
)

func TestC64GCRTableBijection(t *testing.T) {
	seen := map[uint8]bool{}
	for v := 0; v < 16; v++ {
		code := c64GCREncode[v]
		if seen[code] {
			t.Errorf("code %#02x assigned twice", code)
		}
		seen[code] = true
		if got := c64GCRDecode[code]; int(got) != v {
			t.Errorf("decode[encode[%#x]] = %d, want %d", v, got, v)
		}
	}
	invalid := 0
	for code := 0; code < 32; code++ {
		if c64GCRDecode[code] == InvalidGCR {
			invalid++
			if seen[uint8(code)] {
				t.Errorf("code %#02x both valid and invalid", code)
			}
		}
	}
	if invalid != 16 {
		t.Errorf("expected 16 unused 5-bit codes, got %d", invalid)
	}
}

func TestApple62TableBijection(t *testing.T) {
	for v := 0; v < 64; v++ {
		if got := apple62Decode[apple62Encode[v]]; int(got) != v {
			t.Errorf("decode[encode[%#x]] = %d, want %d", v, got, v)
		}
	}
	valid := 0
	for nib := 0; nib < 256; nib++ {
		if apple62Decode[nib] != InvalidGCR {
			valid++
		}
	}
	if valid != 64 {
		t.Errorf("expected 64 valid nibbles, got %d", valid)
	}
}

func TestZoneForTrackBoundaries(t *testing.T) {
	tests := []struct {
		track       int
		zone        int
		sectors     int
		expectError bool
	}{
		{track: 1, zone: 1, sectors: 21},
		{track: 17, zone: 1, sectors: 21},
		{track: 18, zone: 2, sectors: 19},
		{track: 24, zone: 2, sectors: 19},
		{track: 25, zone: 3, sectors: 18},
		{track: 30, zone: 3, sectors: 18},
		{track: 31, zone: 4, sectors: 17},
		{track: 35, zone: 4, sectors: 17},
		{track: 0, expectError: true},
		{track: 36, expectError: true},
		{track: -3, expectError: true},
	}
	for _, tc := range tests {
		zone, err := ZoneForTrack(tc.track)
		if tc.expectError {
			if err == nil {
				t.Errorf("track %d: expected error", tc.track)
			}
			continue
		}
		if err != nil {
			t.Errorf("track %d: %v", tc.track, err)
			continue
		}
		if zone.Zone != tc.zone || zone.Sectors != tc.sectors {
			t.Errorf("track %d: got zone %d/%d sectors, want %d/%d",
				tc.track, zone.Zone, zone.Sectors, tc.zone, tc.sectors)
		}
	}
}

func TestC64TrackRoundTrip(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i * 7)
	}
	bits, err := BuildC64Track(18, 0x30, 0x32, [][]byte{data})
	if err != nil {
		t.Fatalf("BuildC64Track: %v", err)
	}

	dec, err := ForScheme(SchemeGCRC64, Options{PhysicalTrack: 18})
	if err != nil {
		t.Fatalf("ForScheme: %v", err)
	}
	cur := bitstream.New(bits).NewCursor(0)

	if !dec.FindSync(cur) {
		t.Fatal("header sync not found")
	}
	kind, err := dec.ReadMarker(cur)
	if err != nil || kind != MarkAddress {
		t.Fatalf("marker = %v, %v; want address", kind, err)
	}
	addr, err := dec.ReadAddress(cur)
	if err != nil {
		t.Fatalf("ReadAddress: %v", err)
	}
	if !addr.ChecksumOK {
		t.Error("header checksum failed")
	}
	if addr.Cylinder != 18 || addr.Sector != 0 {
		t.Errorf("address = track %d sector %d, want 18/0", addr.Cylinder, addr.Sector)
	}

	if !dec.FindSync(cur) {
		t.Fatal("data sync not found")
	}
	kind, err = dec.ReadMarker(cur)
	if err != nil || kind != MarkData {
		t.Fatalf("marker = %v, %v; want data", kind, err)
	}
	di, err := dec.ReadData(cur, kind, 256)
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if !di.ChecksumOK {
		t.Error("data checksum failed")
	}
	if !bytes.Equal(di.Bytes, data) {
		t.Error("decoded data differs from source")
	}
}

func TestC64InvalidCodeIsPerByteFailure(t *testing.T) {
	// 10 zero bits decode as two invalid codes; the stream keeps going.
	s := bitstream.New(make([]uint8, 20))
	cur := s.NewCursor(0)
	out, bad, err := decodeGCRBytes(cur, 2)
	if err != nil {
		t.Fatalf("decodeGCRBytes: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d bytes, want 2", len(out))
	}
	if len(bad) != 2 {
		t.Errorf("bad list = %v, want both bytes flagged", bad)
	}
}

func TestC64DecoderRejectsOutOfRangeTrack(t *testing.T) {
	if _, err := ForScheme(SchemeGCRC64, Options{PhysicalTrack: 0}); err == nil {
		t.Error("track 0 accepted")
	}
	if _, err := ForScheme(SchemeGCRC64, Options{PhysicalTrack: 36}); err == nil {
		t.Error("track 36 accepted")
	}
}

func TestAppleTrackRoundTrip(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(255 - i)
	}
	bits, err := BuildAppleTrack(254, 7, [][]byte{data})
	if err != nil {
		t.Fatalf("BuildAppleTrack: %v", err)
	}

	dec, err := ForScheme(SchemeGCRApple, Options{})
	if err != nil {
		t.Fatalf("ForScheme: %v", err)
	}
	cur := bitstream.New(bits).NewCursor(0)

	if !dec.FindSync(cur) {
		t.Fatal("address prologue not found")
	}
	kind, err := dec.ReadMarker(cur)
	if err != nil || kind != MarkAddress {
		t.Fatalf("marker = %v, %v; want address", kind, err)
	}
	addr, err := dec.ReadAddress(cur)
	if err != nil {
		t.Fatalf("ReadAddress: %v", err)
	}
	if !addr.ChecksumOK {
		t.Error("address checksum failed")
	}
	if addr.Cylinder != 7 || addr.Sector != 0 {
		t.Errorf("address = track %d sector %d, want 7/0", addr.Cylinder, addr.Sector)
	}

	if !dec.FindSync(cur) {
		t.Fatal("data prologue not found")
	}
	kind, err = dec.ReadMarker(cur)
	if err != nil || kind != MarkData {
		t.Fatalf("marker = %v, %v; want data", kind, err)
	}
	di, err := dec.ReadData(cur, kind, 256)
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if !di.ChecksumOK {
		t.Error("data checksum failed")
	}
	if !bytes.Equal(di.Bytes, data) {
		t.Error("decoded data differs from source")
	}
}
