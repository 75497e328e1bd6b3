package fields

import (
	"bytes"
	"testing"

	"fluxdec/internal/bitstream"
	"fluxdec/internal/encoding"
)

func sectorData(seed, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(seed + i*3)
	}
	return data
}

func TestParsePairsHeadersWithData(t *testing.T) {
	sectors := [][]byte{sectorData(1, 512), sectorData(2, 512), sectorData(3, 512)}
	bits, err := encoding.BuildIBMMFMTrack(12, 0, 2, sectors)
	if err != nil {
		t.Fatalf("BuildIBMMFMTrack: %v", err)
	}
	dec, _ := encoding.ForScheme(encoding.SchemeMFM, encoding.Options{})

	p, err := Parse(dec, bitstream.New(bits), 12)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Pairs) != 3 {
		t.Fatalf("pairs = %d, want 3", len(p.Pairs))
	}
	for i, pair := range p.Pairs {
		if pair.Data == nil {
			t.Fatalf("pair %d unmatched", i)
		}
		if !pair.Address.ChecksumOK || !pair.Data.ChecksumOK {
			t.Errorf("pair %d checksum flags: header %v data %v", i, pair.Address.ChecksumOK, pair.Data.ChecksumOK)
		}
		if pair.Address.Sector != i+1 {
			t.Errorf("pair %d sector = %d, want %d", i, pair.Address.Sector, i+1)
		}
		if !bytes.Equal(pair.Data.Bytes, sectors[i]) {
			t.Errorf("pair %d data mismatch", i)
		}
	}
	if len(p.Orphans) != 0 {
		t.Errorf("unexpected orphans: %d", len(p.Orphans))
	}
}

func TestParseOrphanDataBeforeAnyAddress(t *testing.T) {
	// A data field with no preceding header: hand-build DAM-only track.
	data := sectorData(9, 512)
	full, err := encoding.BuildIBMMFMTrack(0, 0, 2, [][]byte{data})
	if err != nil {
		t.Fatalf("BuildIBMMFMTrack: %v", err)
	}
	// Locate the second sync run (the DAM) and cut the track there.
	dec, _ := encoding.ForScheme(encoding.SchemeMFM, encoding.Options{})
	cur := bitstream.New(full).NewCursor(0)
	dec.FindSync(cur)
	dec.ReadMarker(cur)
	if _, err := dec.ReadAddress(cur); err != nil {
		t.Fatalf("ReadAddress: %v", err)
	}
	damOnly := full[cur.Pos():]

	p, err := Parse(dec, bitstream.New(damOnly), 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Pairs) != 0 {
		t.Fatalf("pairs = %d, want 0", len(p.Pairs))
	}
	if len(p.Orphans) != 1 {
		t.Fatalf("orphans = %d, want 1", len(p.Orphans))
	}
	if !p.Orphans[0].ChecksumOK {
		t.Error("orphan data checksum should verify")
	}
	if !bytes.Equal(p.Orphans[0].Bytes, data) {
		t.Error("orphan data mismatch")
	}
}

func TestParseCorruptHeaderStillPairs(t *testing.T) {
	sectors := [][]byte{sectorData(5, 256)}
	bits, err := encoding.BuildIBMMFMTrack(3, 1, 1, sectors)
	if err != nil {
		t.Fatalf("BuildIBMMFMTrack: %v", err)
	}
	// Corrupt one bit of the cylinder byte in the IDAM payload.
	dec, _ := encoding.ForScheme(encoding.SchemeMFM, encoding.Options{})
	cur := bitstream.New(bits).NewCursor(0)
	dec.FindSync(cur)
	dec.ReadMarker(cur)
	bits[cur.Pos()+1] ^= 1

	p, err := Parse(dec, bitstream.New(bits), -1)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(p.Pairs))
	}
	if p.Pairs[0].Address.ChecksumOK {
		t.Error("corrupted header passed CRC")
	}
	if p.Pairs[0].Data == nil {
		t.Error("data did not pair with failed header")
	}
}

func TestParseAmigaCombinedFrames(t *testing.T) {
	var sectors [][]byte
	for s := 0; s < 11; s++ {
		sectors = append(sectors, sectorData(s, 512))
	}
	bits, err := encoding.BuildAmigaTrack(10, 0, sectors)
	if err != nil {
		t.Fatalf("BuildAmigaTrack: %v", err)
	}
	dec, _ := encoding.ForScheme(encoding.SchemeMFM, encoding.Options{})

	p, err := Parse(dec, bitstream.New(bits), -1)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Pairs) != 11 {
		t.Fatalf("pairs = %d, want 11", len(p.Pairs))
	}
	for i, pair := range p.Pairs {
		if pair.Data == nil {
			t.Fatalf("sector frame %d has no data", i)
		}
		if !pair.Address.ChecksumOK || !pair.Data.ChecksumOK {
			t.Errorf("sector %d checksums: %v/%v", i, pair.Address.ChecksumOK, pair.Data.ChecksumOK)
		}
	}
	if p.Marks[encoding.MarkSector] != 11 {
		t.Errorf("combined marks = %d, want 11", p.Marks[encoding.MarkSector])
	}
}

func TestParseEmptyStreamTerminates(t *testing.T) {
	dec, _ := encoding.ForScheme(encoding.SchemeMFM, encoding.Options{})
	p, err := Parse(dec, bitstream.New(nil), -1)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Pairs) != 0 || len(p.Orphans) != 0 {
		t.Error("records recovered from empty stream")
	}
}
