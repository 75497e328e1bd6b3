package encoding

import (
	"fluxdec/internal/bitstream"
)

// Apple 6&2 GCR nibble alphabet: 64 disk bytes with the high bit set, no
// more than two consecutive zero bits.
var apple62Encode = [64]uint8{
	0x96, 0x97, 0x9A, 0x9B, 0x9D, 0x9E, 0x9F, 0xA6,
	0xA7, 0xAB, 0xAC, 0xAD, 0xAE, 0xAF, 0xB2, 0xB3,
	0xB4, 0xB5, 0xB6, 0xB7, 0xB9, 0xBA, 0xBB, 0xBC,
	0xBD, 0xBE, 0xBF, 0xCB, 0xCD, 0xCE, 0xCF, 0xD3,
	0xD6, 0xD7, 0xD9, 0xDA, 0xDB, 0xDC, 0xDD, 0xDE,
	0xDF, 0xE5, 0xE6, 0xE7, 0xE9, 0xEA, 0xEB, 0xEC,
	0xED, 0xEE, 0xEF, 0xF2, 0xF3, 0xF4, 0xF5, 0xF6,
	0xF7, 0xF9, 0xFA, 0xFB, 0xFC, 0xFD, 0xFE, 0xFF,
}

var apple62Decode [256]int8

func init() {
	for i := range apple62Decode {
		apple62Decode[i] = InvalidGCR
	}
	for v, nib := range apple62Encode {
		apple62Decode[nib] = int8(v)
	}
}

// Field prologues and epilogue, straight from the Disk II controller
// firmware conventions.
const (
	appleAddressProloguePattern uint32 = 0xD5AA96
	appleDataProloguePattern    uint32 = 0xD5AAAD
)

var appleEpilogue = [2]byte{0xDE, 0xAA}

const appleDataNibbles = 342 // 86 fragment nibbles + 256 six-bit nibbles

type appleDecoder struct{}

func (appleDecoder) Scheme() Scheme { return SchemeGCRApple }

// FindSync scans for the D5 AA 96 or D5 AA AD prologue and leaves the
// cursor on its first bit. The 0xFF self-sync run preceding a field
// carries no framing information of its own, so anchoring on the
// prologue is both simpler and stricter.
func (appleDecoder) FindSync(cur *bitstream.Cursor) bool {
	for {
		v, err := cur.PeekUint(24)
		if err != nil {
			return false
		}
		if p := uint32(v); p == appleAddressProloguePattern || p == appleDataProloguePattern {
			return true
		}
		_ = cur.Skip(1)
	}
}

func (appleDecoder) ReadMarker(cur *bitstream.Cursor) (MarkKind, error) {
	v, err := cur.ReadUint(24)
	if err != nil {
		return MarkUnknown, err
	}
	switch uint32(v) {
	case appleAddressProloguePattern:
		return MarkAddress, nil
	case appleDataProloguePattern:
		return MarkData, nil
	}
	return MarkUnknown, nil
}

// readNibbles reads raw disk bytes; each is 8 stream bits.
func readNibbles(cur *bitstream.Cursor, count int) ([]byte, error) {
	out := make([]byte, 0, count)
	for i := 0; i < count; i++ {
		v, err := cur.ReadUint(8)
		if err != nil {
			return out, err
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// decode44 reassembles a 4&4 encoded byte from its odd-bits and
// even-bits nibbles.
func decode44(odd, even byte) byte {
	return (odd&0x55)<<1 | even&0x55
}

// ReadAddress decodes a 4&4 address field: volume, track, sector and an
// XOR checksum, two nibbles each.
func (appleDecoder) ReadAddress(cur *bitstream.Cursor) (AddressInfo, error) {
	pos := cur.Pos()
	nibs, err := readNibbles(cur, 8)
	if err != nil {
		return AddressInfo{}, err
	}
	volume := decode44(nibs[0], nibs[1])
	track := decode44(nibs[2], nibs[3])
	sector := decode44(nibs[4], nibs[5])
	chk := decode44(nibs[6], nibs[7])
	return AddressInfo{
		Cylinder:   int(track),
		Head:       0,
		Sector:     int(sector),
		SizeCode:   1,
		ByteSize:   256,
		ChecksumOK: chk == volume^track^sector,
		BitPos:     pos,
	}, nil
}

// ReadData decodes a 6&2 data field: 342 nibbles XOR-chained plus a
// checksum nibble, then denibblized back into 256 bytes. Unmapped
// nibbles flag the byte position but decoding continues to the next
// sync.
func (appleDecoder) ReadData(cur *bitstream.Cursor, _ MarkKind, _ int) (DataInfo, error) {
	pos := cur.Pos()
	nibs, err := readNibbles(cur, appleDataNibbles+1)
	if err != nil {
		return DataInfo{}, err
	}

	values := make([]byte, appleDataNibbles)
	var badNibbles []int
	var acc byte
	for i := 0; i < appleDataNibbles; i++ {
		d := apple62Decode[nibs[i]]
		if d == InvalidGCR {
			badNibbles = append(badNibbles, i)
			d = 0
		}
		acc ^= byte(d)
		values[i] = acc
	}
	checksumOK := len(badNibbles) == 0
	if d := apple62Decode[nibs[appleDataNibbles]]; d == InvalidGCR || byte(d) != acc {
		checksumOK = false
	}

	// Fragment nibbles are written in descending buffer order, the
	// six-bit nibbles ascending.
	aux := make([]byte, 86)
	for i := 0; i < 86; i++ {
		aux[85-i] = values[i]
	}
	prim := values[86:]

	data := make([]byte, 256)
	var bad []int
	for i := 0; i < 256; i++ {
		pair := aux[i%86] >> uint(2*(i/86)) & 3
		data[i] = prim[i]<<2 | (pair&1)<<1 | pair>>1
	}
	for _, n := range badNibbles {
		if n >= 86 {
			bad = append(bad, n-86)
		} else {
			// A bad fragment nibble taints the up-to-three bytes it
			// feeds.
			j := 85 - n
			for _, idx := range []int{j, j + 86, j + 172} {
				if idx < 256 {
					bad = append(bad, idx)
				}
			}
		}
	}
	return DataInfo{
		Bytes:      data,
		ChecksumOK: checksumOK,
		BadBytes:   bad,
		BitPos:     pos,
	}, nil
}

func (appleDecoder) ReadSector(cur *bitstream.Cursor) (AddressInfo, DataInfo, error) {
	return AddressInfo{}, DataInfo{}, ErrNotCombined
}
