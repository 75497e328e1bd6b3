package encoding

import (
	"bytes"
	"testing"

	"fluxdec/internal/bitstream"
)

func TestFMTrackRoundTrip(t *testing.T) {
	data := make([]byte, 128)
	for i := range data {
		data[i] = byte(i ^ 0x55)
	}
	bits, err := BuildFMTrack(2, 1, 0, [][]byte{data})
	if err != nil {
		t.Fatalf("BuildFMTrack: %v", err)
	}

	dec, _ := ForScheme(SchemeFM, Options{})
	cur := bitstream.New(bits).NewCursor(0)

	if !dec.FindSync(cur) {
		t.Fatal("IDAM not found")
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
	if addr.Cylinder != 2 || addr.Head != 1 || addr.Sector != 1 || addr.ByteSize != 128 {
		t.Errorf("unexpected address field: %+v", addr)
	}

	if !dec.FindSync(cur) {
		t.Fatal("DAM not found")
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
}

func TestFMDeletedDataMark(t *testing.T) {
	// Hand-build a deleted data field behind its mark.
	data := fill(0xE5, 128)
	w := &bitWriter{}
	w.writeFM(fill(0x00, 6))
	w.writeBits(uint64(fmChannelDDAM), 16)
	field := append([]byte{0xF8}, data...)
	crc := CRC16(CRCInitFM, field)
	w.writeFM(append(append([]byte{}, data...), byte(crc>>8), byte(crc)))

	dec, _ := ForScheme(SchemeFM, Options{})
	cur := bitstream.New(w.bits).NewCursor(0)
	if !dec.FindSync(cur) {
		t.Fatal("DDAM not found")
	}
	kind, err := dec.ReadMarker(cur)
	if err != nil || kind != MarkDeletedData {
		t.Fatalf("marker = %v, %v; want deleted-data", kind, err)
	}
	di, err := dec.ReadData(cur, kind, 128)
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if !di.Deleted {
		t.Error("deleted flag not set")
	}
	if !di.ChecksumOK {
		t.Error("DDAM CRC failed")
	}
}
