package encoding

import (
	"fluxdec/internal/bitstream"
)

// FM mark channel words. FM interleaves a clock pulse before every data
// bit; the marks suppress specific clock pulses (clock 0xC7 or 0xD7
// instead of 0xFF), which makes the 16-bit channel image unique in the
// stream.
const (
	fmChannelIDAM uint16 = 0xF57E // 0xFE, clock 0xC7
	fmChannelDAM  uint16 = 0xF56F // 0xFB, clock 0xC7
	fmChannelDDAM uint16 = 0xF56A // 0xF8, clock 0xC7
	fmChannelIAM  uint16 = 0xF77A // 0xFC, clock 0xD7
)

type fmDecoder struct {
	crcSeed uint16
}

func newFMDecoder(seed uint16) fmDecoder {
	if seed == 0 {
		seed = CRCInitFM
	}
	return fmDecoder{crcSeed: seed}
}

func (fmDecoder) Scheme() Scheme { return SchemeFM }

// FindSync scans bitwise for any FM mark pattern and leaves the cursor on
// it.
func (fmDecoder) FindSync(cur *bitstream.Cursor) bool {
	for {
		v, err := cur.PeekUint(16)
		if err != nil {
			return false
		}
		switch uint16(v) {
		case fmChannelIDAM, fmChannelDAM, fmChannelDDAM, fmChannelIAM:
			return true
		}
		_ = cur.Skip(1)
	}
}

func (fmDecoder) ReadMarker(cur *bitstream.Cursor) (MarkKind, error) {
	v, err := cur.ReadUint(16)
	if err != nil {
		return MarkUnknown, err
	}
	switch uint16(v) {
	case fmChannelIDAM:
		return MarkAddress, nil
	case fmChannelDAM:
		return MarkData, nil
	case fmChannelDDAM:
		return MarkDeletedData, nil
	case fmChannelIAM:
		return MarkIndex, nil
	}
	return MarkUnknown, nil
}

// decodeFMBytes extracts count data bytes, skipping the interleaved
// clock bits. A suppressed clock inside a data run flags the byte.
func decodeFMBytes(cur *bitstream.Cursor, count int) ([]byte, []int, error) {
	out := make([]byte, 0, count)
	var bad []int
	for i := 0; i < count; i++ {
		word, err := cur.ReadUint(16)
		if err != nil {
			return out, bad, err
		}
		var b byte
		missing := false
		for pair := 0; pair < 8; pair++ {
			clock := byte(word>>(15-2*pair)) & 1
			data := byte(word>>(14-2*pair)) & 1
			if clock == 0 {
				missing = true
			}
			b = b<<1 | data
		}
		if missing {
			bad = append(bad, i)
		}
		out = append(out, b)
	}
	return out, bad, nil
}

func (d fmDecoder) ReadAddress(cur *bitstream.Cursor) (AddressInfo, error) {
	pos := cur.Pos()
	payload, bad, err := decodeFMBytes(cur, 6)
	if err != nil {
		return AddressInfo{}, err
	}
	field := append([]byte{0xFE}, payload...)
	return AddressInfo{
		Cylinder:   int(payload[0]),
		Head:       int(payload[1]),
		Sector:     int(payload[2]),
		SizeCode:   int(payload[3]),
		ByteSize:   SectorByteSize(int(payload[3])),
		ChecksumOK: len(bad) == 0 && VerifyCRC16(d.crcSeed, field),
		BitPos:     pos,
	}, nil
}

func (d fmDecoder) ReadData(cur *bitstream.Cursor, kind MarkKind, byteSize int) (DataInfo, error) {
	pos := cur.Pos()
	mark := byte(0xFB)
	if kind == MarkDeletedData {
		mark = 0xF8
	}
	payload, bad, err := decodeFMBytes(cur, byteSize+2)
	if err != nil {
		return DataInfo{}, err
	}
	field := append([]byte{mark}, payload...)
	return DataInfo{
		Bytes:      payload[:byteSize],
		ChecksumOK: len(bad) == 0 && VerifyCRC16(d.crcSeed, field),
		Deleted:    kind == MarkDeletedData,
		BadBytes:   bad,
		BitPos:     pos,
	}, nil
}

func (fmDecoder) ReadSector(cur *bitstream.Cursor) (AddressInfo, DataInfo, error) {
	return AddressInfo{}, DataInfo{}, ErrNotCombined
}
