package encoding

import (
	"bytes"
	"testing"

	"fluxdec/internal/bitstream"
)

func TestIBMMFMTrackRoundTrip(t *testing.T) {
	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i)
	}
	bits, err := BuildIBMMFMTrack(5, 0, 2, [][]byte{data})
	if err != nil {
		t.Fatalf("BuildIBMMFMTrack: %v", err)
	}

	dec, _ := ForScheme(SchemeMFM, Options{})
	cur := bitstream.New(bits).NewCursor(0)

	if !dec.FindSync(cur) {
		t.Fatal("IDAM sync not found")
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
		t.Error("IDAM CRC failed")
	}
	if addr.Cylinder != 5 || addr.Head != 0 || addr.Sector != 1 || addr.ByteSize != 512 {
		t.Errorf("unexpected address field: %+v", addr)
	}

	if !dec.FindSync(cur) {
		t.Fatal("DAM sync not found")
	}
	kind, err = dec.ReadMarker(cur)
	if err != nil || kind != MarkData {
		t.Fatalf("marker = %v, %v; want data", kind, err)
	}
	di, err := dec.ReadData(cur, kind, addr.ByteSize)
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if !di.ChecksumOK {
		t.Error("data CRC failed")
	}
	if !bytes.Equal(di.Bytes, data) {
		t.Error("decoded data differs from source")
	}
	if di.Deleted {
		t.Error("regular DAM flagged deleted")
	}
}

func TestMFMCorruptedDataFailsCRCButIsRetained(t *testing.T) {
	data := make([]byte, 256)
	bits, err := BuildIBMMFMTrack(0, 0, 1, [][]byte{data})
	if err != nil {
		t.Fatalf("BuildIBMMFMTrack: %v", err)
	}

	dec, _ := ForScheme(SchemeMFM, Options{})
	cur := bitstream.New(bits).NewCursor(0)
	dec.FindSync(cur)
	dec.ReadMarker(cur)
	addr, _ := dec.ReadAddress(cur)
	dec.FindSync(cur)
	kind, _ := dec.ReadMarker(cur)

	// Flip one data bit inside the data field.
	pos := cur.Pos() + 33
	raw := bitstream.New(bits).Bits()
	raw[pos] ^= 1

	cur2 := bitstream.New(raw).NewCursor(cur.Pos())
	di, err := dec.ReadData(cur2, kind, addr.ByteSize)
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if di.ChecksumOK {
		t.Error("CRC passed on corrupted field")
	}
	if len(di.Bytes) != 256 {
		t.Errorf("corrupted field not retained: %d bytes", len(di.Bytes))
	}
}

func TestMFMIllegalClockPairFlagsByte(t *testing.T) {
	w := &bitWriter{}
	w.writeMFM([]byte{0x12}, 0)
	// Force an illegal 11 pair in the second byte's first cell.
	w.writeBits(0b11, 2)
	w.writeMFM([]byte{0x34}, 1)

	cur := bitstream.New(w.bits).NewCursor(0)
	out, bad, err := decodeMFMBytes(cur, 2)
	if err != nil {
		t.Fatalf("decodeMFMBytes: %v", err)
	}
	if out[0] != 0x12 {
		t.Errorf("byte 0 = %#02x, want 0x12", out[0])
	}
	if len(bad) != 1 || bad[0] != 1 {
		t.Errorf("bad = %v, want [1]", bad)
	}
	// The illegal pair's data bit decodes as 0.
	if out[1]&0x80 != 0 {
		t.Errorf("illegal pair decoded as 1: %#02x", out[1])
	}
}

func TestAmigaTrackRoundTrip(t *testing.T) {
	var sectors [][]byte
	for s := 0; s < 11; s++ {
		data := make([]byte, 512)
		for i := range data {
			data[i] = byte(s*31 + i)
		}
		sectors = append(sectors, data)
	}
	bits, err := BuildAmigaTrack(40, 1, sectors)
	if err != nil {
		t.Fatalf("BuildAmigaTrack: %v", err)
	}

	dec, _ := ForScheme(SchemeMFM, Options{})
	cur := bitstream.New(bits).NewCursor(0)
	for s := 0; s < 11; s++ {
		if !dec.FindSync(cur) {
			t.Fatalf("sector %d: sync not found", s)
		}
		kind, err := dec.ReadMarker(cur)
		if err != nil {
			t.Fatalf("sector %d: ReadMarker: %v", s, err)
		}
		if kind != MarkSector {
			t.Fatalf("sector %d: marker = %v, want combined sector", s, kind)
		}
		addr, di, err := dec.ReadSector(cur)
		if err != nil {
			t.Fatalf("sector %d: ReadSector: %v", s, err)
		}
		if !addr.ChecksumOK {
			t.Errorf("sector %d: header checksum failed", s)
		}
		if !di.ChecksumOK {
			t.Errorf("sector %d: data checksum failed", s)
		}
		if addr.Cylinder != 40 || addr.Head != 1 || addr.Sector != s {
			t.Errorf("sector %d: address %+v", s, addr)
		}
		if !bytes.Equal(di.Bytes, sectors[s]) {
			t.Errorf("sector %d: data mismatch", s)
		}
	}
	if dec.FindSync(cur) {
		if kind, _ := dec.ReadMarker(cur); kind != MarkUnknown {
			t.Error("stray frame after last sector")
		}
	}
}

func TestMFMFindSyncEndOfTrack(t *testing.T) {
	// A gap-only stream has no sync; scanning must stop cleanly.
	w := &bitWriter{}
	w.writeMFM(fill(0x4E, 64), 0)
	dec, _ := ForScheme(SchemeMFM, Options{})
	cur := bitstream.New(w.bits).NewCursor(0)
	if dec.FindSync(cur) {
		t.Error("sync reported in pure gap data")
	}
}
