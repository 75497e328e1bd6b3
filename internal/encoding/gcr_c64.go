package encoding

import (
	"fmt"

	"fluxdec/internal/bitstream"
)

// Commodore 1541 GCR: each data nibble becomes a 5-bit code chosen so no
// code starts or ends with two zero bits and no code contains three.
var c64GCREncode = [16]uint8{
	0x0A, 0x0B, 0x12, 0x13, 0x0E, 0x0F, 0x16, 0x17,
	0x09, 0x19, 0x1A, 0x1B, 0x0D, 0x1D, 0x1E, 0x15,
}

// InvalidGCR marks a 5-bit code with no nibble mapping.
const InvalidGCR = -1

var c64GCRDecode = [32]int8{
	-1, -1, -1, -1, -1, -1, -1, -1,
	-1, 0x8, 0x0, 0x1, -1, 0xC, 0x4, 0x5,
	-1, -1, 0x2, 0x3, -1, 0xF, 0x6, 0x7,
	-1, 0x9, 0xA, 0xB, -1, 0xD, 0xE, -1,
}

// 1541 block markers, first decoded byte after a sync run.
const (
	c64HeaderMarker = 0x08
	c64DataMarker   = 0x07
)

// c64SyncRunBits is the minimum run of 1 bits accepted as a sync mark.
const c64SyncRunBits = 10

// SpeedZone describes one 1541 speed zone.
type SpeedZone struct {
	Zone    int
	Sectors int
}

// ZoneForTrack maps a logical 1541 track number (1-35) to its speed zone.
// The drive spins at constant angular velocity, so the zones trade
// bitrate for sectors per track.
func ZoneForTrack(track int) (SpeedZone, error) {
	switch {
	case track < 1 || track > 35:
		return SpeedZone{}, fmt.Errorf("1541 track %d outside 1-35", track)
	case track <= 17:
		return SpeedZone{Zone: 1, Sectors: 21}, nil
	case track <= 24:
		return SpeedZone{Zone: 2, Sectors: 19}, nil
	case track <= 30:
		return SpeedZone{Zone: 3, Sectors: 18}, nil
	default:
		return SpeedZone{Zone: 4, Sectors: 17}, nil
	}
}

type c64Decoder struct {
	physicalTrack int
}

func newC64Decoder(physicalTrack int) (c64Decoder, error) {
	if _, err := ZoneForTrack(physicalTrack); err != nil {
		return c64Decoder{}, err
	}
	return c64Decoder{physicalTrack: physicalTrack}, nil
}

func (c64Decoder) Scheme() Scheme { return SchemeGCRC64 }

// FindSync scans for a run of at least ten 1 bits, then consumes the
// remainder of the run so the cursor lands on the first code bit.
func (c64Decoder) FindSync(cur *bitstream.Cursor) bool {
	run := 0
	for {
		b, err := cur.ReadBit()
		if err != nil {
			return false
		}
		if b == 1 {
			run++
			continue
		}
		if run >= c64SyncRunBits {
			// The 0 just consumed is the first bit of the marker code.
			cur.SetPos(cur.Pos() - 1)
			return true
		}
		run = 0
	}
}

// decodeGCRBytes reads count bytes as pairs of 5-bit codes. Unmapped
// codes flag the byte and decode as nibble 0; decoding continues.
func decodeGCRBytes(cur *bitstream.Cursor, count int) ([]byte, []int, error) {
	out := make([]byte, 0, count)
	var bad []int
	for i := 0; i < count; i++ {
		v, err := cur.ReadUint(10)
		if err != nil {
			return out, bad, err
		}
		hi := c64GCRDecode[v>>5&0x1F]
		lo := c64GCRDecode[v&0x1F]
		if hi == InvalidGCR || lo == InvalidGCR {
			bad = append(bad, i)
			if hi == InvalidGCR {
				hi = 0
			}
			if lo == InvalidGCR {
				lo = 0
			}
		}
		out = append(out, byte(hi)<<4|byte(lo))
	}
	return out, bad, nil
}

func (c64Decoder) ReadMarker(cur *bitstream.Cursor) (MarkKind, error) {
	b, bad, err := decodeGCRBytes(cur, 1)
	if err != nil {
		return MarkUnknown, err
	}
	if len(bad) > 0 {
		return MarkUnknown, nil
	}
	switch b[0] {
	case c64HeaderMarker:
		return MarkAddress, nil
	case c64DataMarker:
		return MarkData, nil
	}
	return MarkUnknown, nil
}

// ReadAddress decodes a 1541 header block: checksum, sector, track, the
// two format ID bytes and two 0x0F pad bytes. The checksum is the XOR of
// sector, track and both ID bytes.
func (c64Decoder) ReadAddress(cur *bitstream.Cursor) (AddressInfo, error) {
	pos := cur.Pos()
	payload, bad, err := decodeGCRBytes(cur, 7)
	if err != nil {
		return AddressInfo{}, err
	}
	chk, sector, track := payload[0], payload[1], payload[2]
	id2, id1 := payload[3], payload[4]
	return AddressInfo{
		Cylinder:   int(track),
		Head:       0,
		Sector:     int(sector),
		SizeCode:   1,
		ByteSize:   256,
		ChecksumOK: len(bad) == 0 && chk == sector^track^id2^id1,
		BitPos:     pos,
	}, nil
}

// ReadData decodes a 1541 data block: 256 data bytes followed by their
// XOR checksum and two pad bytes.
func (c64Decoder) ReadData(cur *bitstream.Cursor, _ MarkKind, _ int) (DataInfo, error) {
	pos := cur.Pos()
	payload, bad, err := decodeGCRBytes(cur, 257)
	if err != nil {
		return DataInfo{}, err
	}
	data := payload[:256]
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return DataInfo{
		Bytes:      data,
		ChecksumOK: len(bad) == 0 && sum == payload[256],
		BadBytes:   bad,
		BitPos:     pos,
	}, nil
}

func (c64Decoder) ReadSector(cur *bitstream.Cursor) (AddressInfo, DataInfo, error) {
	return AddressInfo{}, DataInfo{}, ErrNotCombined
}
