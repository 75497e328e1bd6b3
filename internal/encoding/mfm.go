package encoding

import (
	"fluxdec/internal/bitstream"
)

// MFM framing constants. 0x4489 is the channel image of 0xA1 with a
// deliberately suppressed clock bit, so it can never occur in legally
// encoded data.
const (
	MFMSyncWord uint16 = 0x4489

	mfmChannelIDAM  uint16 = 0x5554 // 0xFE
	mfmChannelDAM   uint16 = 0x5545 // 0xFB
	mfmChannelDDAM  uint16 = 0x554A // 0xF8
	mfmChannelIAM   uint16 = 0x5552 // 0xFC
	amigaFormatByte        = 0xFF
)

const oddBitsMask = 0x55555555

type mfmDecoder struct {
	crcSeed uint16
}

func newMFMDecoder(seed uint16) mfmDecoder {
	if seed == 0 {
		seed = CRCInitMFM
	}
	return mfmDecoder{crcSeed: seed}
}

func (mfmDecoder) Scheme() Scheme { return SchemeMFM }

// FindSync scans for the 0x4489 sync word and consumes the whole run of
// consecutive sync words. IBM framing writes three, Amiga framing two;
// because the pattern is a clock violation a single hit is already
// unambiguous.
func (mfmDecoder) FindSync(cur *bitstream.Cursor) bool {
	for {
		v, err := cur.PeekUint(16)
		if err != nil {
			return false
		}
		if uint16(v) == MFMSyncWord {
			for {
				v, err := cur.PeekUint(16)
				if err != nil || uint16(v) != MFMSyncWord {
					return true
				}
				_ = cur.Skip(16)
			}
		}
		_ = cur.Skip(1)
	}
}

// ReadMarker classifies the channel word following the sync run. IBM
// marks are consumed; an Amiga 0xFF-format info long is left in place for
// ReadSector to decode as a whole.
func (mfmDecoder) ReadMarker(cur *bitstream.Cursor) (MarkKind, error) {
	v, err := cur.PeekUint(16)
	if err != nil {
		return MarkUnknown, err
	}
	switch uint16(v) {
	case mfmChannelIDAM:
		_ = cur.Skip(16)
		return MarkAddress, nil
	case mfmChannelDAM:
		_ = cur.Skip(16)
		return MarkData, nil
	case mfmChannelDDAM:
		_ = cur.Skip(16)
		return MarkDeletedData, nil
	case mfmChannelIAM:
		_ = cur.Skip(16)
		return MarkIndex, nil
	}
	if long, err := cur.PeekUint(64); err == nil {
		if info := decodeOddEven(uint32(long>>32), uint32(long)); info>>24 == amigaFormatByte {
			return MarkSector, nil
		}
	}
	return MarkUnknown, nil
}

// decodeMFMBytes extracts count data bytes from interleaved clock/data
// channel bits. An illegal 11 clock/data pair decodes the bit as 0 and
// flags the byte.
func decodeMFMBytes(cur *bitstream.Cursor, count int) ([]byte, []int, error) {
	out := make([]byte, 0, count)
	var bad []int
	for i := 0; i < count; i++ {
		word, err := cur.ReadUint(16)
		if err != nil {
			return out, bad, err
		}
		var b byte
		illegal := false
		for pair := 0; pair < 8; pair++ {
			clock := byte(word>>(15-2*pair)) & 1
			data := byte(word>>(14-2*pair)) & 1
			if clock == 1 && data == 1 {
				illegal = true
				data = 0
			}
			b = b<<1 | data
		}
		if illegal {
			bad = append(bad, i)
		}
		out = append(out, b)
	}
	return out, bad, nil
}

func (d mfmDecoder) ReadAddress(cur *bitstream.Cursor) (AddressInfo, error) {
	pos := cur.Pos()
	payload, bad, err := decodeMFMBytes(cur, 6) // C H R N CRC CRC
	if err != nil {
		return AddressInfo{}, err
	}
	field := append([]byte{0xFE}, payload...)
	info := AddressInfo{
		Cylinder:   int(payload[0]),
		Head:       int(payload[1]),
		Sector:     int(payload[2]),
		SizeCode:   int(payload[3]),
		ByteSize:   SectorByteSize(int(payload[3])),
		ChecksumOK: len(bad) == 0 && VerifyCRC16(d.crcSeed, field),
		BitPos:     pos,
	}
	return info, nil
}

func (d mfmDecoder) ReadData(cur *bitstream.Cursor, kind MarkKind, byteSize int) (DataInfo, error) {
	pos := cur.Pos()
	mark := byte(0xFB)
	if kind == MarkDeletedData {
		mark = 0xF8
	}
	payload, bad, err := decodeMFMBytes(cur, byteSize+2)
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

// ReadSector decodes one Amiga-framed sector: info long, 16-byte label,
// header checksum, data checksum and 512 data bytes, all odd/even
// longword encoded.
func (mfmDecoder) ReadSector(cur *bitstream.Cursor) (AddressInfo, DataInfo, error) {
	pos := cur.Pos()
	readRaw := func() (uint32, error) {
		v, err := cur.ReadUint(32)
		return uint32(v), err
	}

	var hdrRaw []uint32
	infoOdd, err := readRaw()
	if err != nil {
		return AddressInfo{}, DataInfo{}, err
	}
	infoEven, err := readRaw()
	if err != nil {
		return AddressInfo{}, DataInfo{}, err
	}
	hdrRaw = append(hdrRaw, infoOdd, infoEven)

	// Label area: four longs, odd halves then even halves.
	var labelRaw [8]uint32
	for i := range labelRaw {
		v, err := readRaw()
		if err != nil {
			return AddressInfo{}, DataInfo{}, err
		}
		labelRaw[i] = v
		hdrRaw = append(hdrRaw, v)
	}

	hdrSumOdd, err := readRaw()
	if err != nil {
		return AddressInfo{}, DataInfo{}, err
	}
	hdrSumEven, err := readRaw()
	if err != nil {
		return AddressInfo{}, DataInfo{}, err
	}
	dataSumOdd, err := readRaw()
	if err != nil {
		return AddressInfo{}, DataInfo{}, err
	}
	dataSumEven, err := readRaw()
	if err != nil {
		return AddressInfo{}, DataInfo{}, err
	}

	const dataLongs = 128 // 512 bytes
	dataRaw := make([]uint32, 2*dataLongs)
	for i := range dataRaw {
		v, err := readRaw()
		if err != nil {
			return AddressInfo{}, DataInfo{}, err
		}
		dataRaw[i] = v
	}

	info := decodeOddEven(infoOdd, infoEven)
	track := int(info>>16) & 0xFF
	sector := int(info>>8) & 0xFF

	hdrComputed := rawChecksum(hdrRaw)
	hdrStored := decodeOddEven(hdrSumOdd, hdrSumEven)
	dataComputed := rawChecksum(dataRaw)
	dataStored := decodeOddEven(dataSumOdd, dataSumEven)

	data := make([]byte, 512)
	for i := 0; i < dataLongs; i++ {
		long := decodeOddEven(dataRaw[i], dataRaw[dataLongs+i])
		data[4*i] = byte(long >> 24)
		data[4*i+1] = byte(long >> 16)
		data[4*i+2] = byte(long >> 8)
		data[4*i+3] = byte(long)
	}

	addr := AddressInfo{
		Cylinder:   track / 2,
		Head:       track & 1,
		Sector:     sector,
		SizeCode:   2,
		ByteSize:   512,
		ChecksumOK: hdrComputed == hdrStored,
		BitPos:     pos,
	}
	dataInfo := DataInfo{
		Bytes:      data,
		ChecksumOK: dataComputed == dataStored,
		BitPos:     pos,
	}
	return addr, dataInfo, nil
}

// decodeOddEven reassembles a 32-bit value from its odd-bits and
// even-bits channel longs.
func decodeOddEven(odd, even uint32) uint32 {
	return (odd&oddBitsMask)<<1 | even&oddBitsMask
}

// rawChecksum is the Amiga longword checksum: XOR of the raw channel
// longs with the clock positions masked off.
func rawChecksum(raw []uint32) uint32 {
	var sum uint32
	for _, v := range raw {
		sum ^= v
	}
	return sum & oddBitsMask
}
