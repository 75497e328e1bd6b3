package encoding

import (
	"fmt"
	"math"

	"fluxdec/internal/flux"
)

// Encode direction: turns byte payloads into channel bit streams laid out
// the way the real controllers wrote them, and channel bits into
// synthetic flux intervals. Used by round-trip verification and the
// capture synthesizer; the layouts mirror what the decoders expect.

type bitWriter struct {
	bits []uint8
}

func (w *bitWriter) writeBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.bits = append(w.bits, uint8(v>>uint(i))&1)
	}
}

// writeMFM channel-encodes data bytes, threading the previous data bit
// through so clock bits stay legal across byte boundaries. Returns the
// new last data bit.
func (w *bitWriter) writeMFM(data []byte, lastBit uint8) uint8 {
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			d := uint8(b>>uint(i)) & 1
			clock := uint8(0)
			if lastBit == 0 && d == 0 {
				clock = 1
			}
			w.bits = append(w.bits, clock, d)
			lastBit = d
		}
	}
	return lastBit
}

// writeMFMBits channel-encodes raw data bits.
func (w *bitWriter) writeMFMBits(data []uint8, lastBit uint8) uint8 {
	for _, d := range data {
		clock := uint8(0)
		if lastBit == 0 && d == 0 {
			clock = 1
		}
		w.bits = append(w.bits, clock, d)
		lastBit = d
	}
	return lastBit
}

// writeFM channel-encodes data bytes with a clock pulse before every bit.
func (w *bitWriter) writeFM(data []byte) {
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			w.bits = append(w.bits, 1, uint8(b>>uint(i))&1)
		}
	}
}

// writeGCRC64 emits bytes as pairs of 5-bit codes.
func (w *bitWriter) writeGCRC64(data []byte) {
	for _, b := range data {
		w.writeBits(uint64(c64GCREncode[b>>4]), 5)
		w.writeBits(uint64(c64GCREncode[b&0x0F]), 5)
	}
}

// BuildIBMMFMTrack lays out an IBM System/34-style MFM track for the
// given sectors, numbered from 1. All sectors share one size code.
func BuildIBMMFMTrack(cyl, head, sizeCode int, sectors [][]byte) ([]uint8, error) {
	size := SectorByteSize(sizeCode)
	if size == 0 {
		return nil, fmt.Errorf("invalid size code %d", sizeCode)
	}
	w := &bitWriter{}
	last := w.writeMFM(fill(0x4E, 32), 0)
	for i, data := range sectors {
		if len(data) != size {
			return nil, fmt.Errorf("sector %d: %d bytes, size code %d wants %d", i+1, len(data), sizeCode, size)
		}
		last = w.writeMFM(fill(0x00, 12), last)
		for s := 0; s < 3; s++ {
			w.writeBits(uint64(MFMSyncWord), 16)
		}
		last = 1
		idField := []byte{0xFE, byte(cyl), byte(head), byte(i + 1), byte(sizeCode)}
		crc := CRC16(CRCInitMFM, idField)
		last = w.writeMFM(append(append([]byte{}, idField...), byte(crc>>8), byte(crc)), last)

		last = w.writeMFM(fill(0x4E, 22), last)
		last = w.writeMFM(fill(0x00, 12), last)
		for s := 0; s < 3; s++ {
			w.writeBits(uint64(MFMSyncWord), 16)
		}
		last = 1
		dataField := append([]byte{0xFB}, data...)
		crc = CRC16(CRCInitMFM, dataField)
		last = w.writeMFM(append(append([]byte{}, dataField...), byte(crc>>8), byte(crc)), last)
		last = w.writeMFM(fill(0x4E, 24), last)
	}
	return w.bits, nil
}

// BuildFMTrack lays out an FM track, sectors numbered from 1.
func BuildFMTrack(cyl, head, sizeCode int, sectors [][]byte) ([]uint8, error) {
	size := SectorByteSize(sizeCode)
	if size == 0 {
		return nil, fmt.Errorf("invalid size code %d", sizeCode)
	}
	w := &bitWriter{}
	w.writeFM(fill(0xFF, 16))
	for i, data := range sectors {
		if len(data) != size {
			return nil, fmt.Errorf("sector %d: %d bytes, size code %d wants %d", i+1, len(data), sizeCode, size)
		}
		w.writeFM(fill(0x00, 6))
		w.writeBits(uint64(fmChannelIDAM), 16)
		idField := []byte{0xFE, byte(cyl), byte(head), byte(i + 1), byte(sizeCode)}
		crc := CRC16(CRCInitFM, idField)
		w.writeFM(append(idField[1:], byte(crc>>8), byte(crc)))

		w.writeFM(fill(0xFF, 11))
		w.writeFM(fill(0x00, 6))
		w.writeBits(uint64(fmChannelDAM), 16)
		dataField := append([]byte{0xFB}, data...)
		crc = CRC16(CRCInitFM, dataField)
		w.writeFM(append(append([]byte{}, data...), byte(crc>>8), byte(crc)))
		w.writeFM(fill(0xFF, 16))
	}
	return w.bits, nil
}

// oddEvenBits appends the odd-bit words then even-bit words of a block of
// 32-bit longs, the Amiga sector layout.
func oddEvenBits(dst []uint8, longs []uint32) []uint8 {
	for _, d := range longs {
		for i := 31; i >= 1; i -= 2 {
			dst = append(dst, uint8(d>>uint(i))&1)
		}
	}
	for _, d := range longs {
		for i := 30; i >= 0; i -= 2 {
			dst = append(dst, uint8(d>>uint(i))&1)
		}
	}
	return dst
}

// amigaBlockChecksum is the longword checksum over a block as it appears
// on disk: XOR of the odd and even halves of every long.
func amigaBlockChecksum(longs []uint32) uint32 {
	var sum uint32
	for _, d := range longs {
		sum ^= d >> 1 & oddBitsMask
		sum ^= d & oddBitsMask
	}
	return sum
}

// BuildAmigaTrack lays out an Amiga trackdisk-format track: 11 sectors of
// 512 bytes, each a self-contained odd/even encoded frame behind a
// double 0x4489 sync.
func BuildAmigaTrack(cyl, head int, sectors [][]byte) ([]uint8, error) {
	if len(sectors) == 0 || len(sectors) > 11 {
		return nil, fmt.Errorf("amiga track wants 1-11 sectors, got %d", len(sectors))
	}
	tt := byte(cyl*2 + head)
	w := &bitWriter{}
	last := w.writeMFM(fill(0x00, 2), 0)
	for s, data := range sectors {
		if len(data) != 512 {
			return nil, fmt.Errorf("sector %d: amiga sectors are 512 bytes, got %d", s, len(data))
		}
		last = w.writeMFM(fill(0x00, 2), last)
		w.writeBits(uint64(MFMSyncWord), 16)
		w.writeBits(uint64(MFMSyncWord), 16)
		last = 1

		info := uint32(0xFF)<<24 | uint32(tt)<<16 | uint32(s)<<8 | uint32(len(sectors)-s)
		label := make([]uint32, 4)
		hdrLongs := append([]uint32{info}, label...)
		hdrSum := amigaBlockChecksum(hdrLongs)

		dataLongs := make([]uint32, 128)
		for i := range dataLongs {
			dataLongs[i] = uint32(data[4*i])<<24 | uint32(data[4*i+1])<<16 |
				uint32(data[4*i+2])<<8 | uint32(data[4*i+3])
		}
		dataSum := amigaBlockChecksum(dataLongs)

		var frame []uint8
		frame = oddEvenBits(frame, []uint32{info})
		frame = oddEvenBits(frame, label)
		frame = oddEvenBits(frame, []uint32{hdrSum})
		frame = oddEvenBits(frame, []uint32{dataSum})
		frame = oddEvenBits(frame, dataLongs)
		last = w.writeMFMBits(frame, last)
	}
	w.writeMFM(fill(0x00, 2), last)
	return w.bits, nil
}

// BuildC64Track lays out a 1541 GCR track. Sectors are numbered from 0;
// the caller supplies the logical track number (1-35) and format ID.
func BuildC64Track(track int, id1, id2 byte, sectors [][]byte) ([]uint8, error) {
	if _, err := ZoneForTrack(track); err != nil {
		return nil, err
	}
	w := &bitWriter{}
	for s, data := range sectors {
		if len(data) != 256 {
			return nil, fmt.Errorf("sector %d: 1541 sectors are 256 bytes, got %d", s, len(data))
		}
		sec, trk := byte(s), byte(track)
		w.writeBits(0xFFFFFFFFFF, 40) // sync
		chk := sec ^ trk ^ id2 ^ id1
		w.writeGCRC64([]byte{c64HeaderMarker, chk, sec, trk, id2, id1, 0x0F, 0x0F})
		for i := 0; i < 9; i++ {
			w.writeBits(0x55, 8) // header gap
		}
		w.writeBits(0xFFFFFFFFFF, 40)
		var dsum byte
		for _, b := range data {
			dsum ^= b
		}
		block := append([]byte{c64DataMarker}, data...)
		block = append(block, dsum, 0x00, 0x00)
		w.writeGCRC64(block)
		for i := 0; i < 8; i++ {
			w.writeBits(0x55, 8) // inter-sector gap
		}
	}
	return w.bits, nil
}

func reverse2(b byte) byte { return (b&1)<<1 | b>>1&1 }

func encode44(v byte) (byte, byte) {
	return v>>1 | 0xAA, v | 0xAA
}

// nibblize62 converts 256 bytes into the 342 six-bit values in their
// on-disk order: fragment buffer descending, then the six-bit buffer
// ascending.
func nibblize62(data []byte) []byte {
	aux := make([]byte, 86)
	for i, b := range data {
		aux[i%86] |= reverse2(b&3) << uint(2*(i/86))
	}
	out := make([]byte, 0, appleDataNibbles)
	for i := 85; i >= 0; i-- {
		out = append(out, aux[i])
	}
	for _, b := range data {
		out = append(out, b>>2)
	}
	return out
}

// BuildAppleTrack lays out an Apple 5.25" 6&2 track, sectors numbered
// from 0.
func BuildAppleTrack(volume, track int, sectors [][]byte) ([]uint8, error) {
	w := &bitWriter{}
	writeSelfSync := func(count int) {
		for i := 0; i < count; i++ {
			w.writeBits(0xFF, 8)
			w.writeBits(0, 2)
		}
	}
	writeNibbles := func(nibs ...byte) {
		for _, n := range nibs {
			w.writeBits(uint64(n), 8)
		}
	}
	for s, data := range sectors {
		if len(data) != 256 {
			return nil, fmt.Errorf("sector %d: apple sectors are 256 bytes, got %d", s, len(data))
		}
		vol, trk, sec := byte(volume), byte(track), byte(s)
		writeSelfSync(20)
		writeNibbles(0xD5, 0xAA, 0x96)
		for _, v := range []byte{vol, trk, sec, vol ^ trk ^ sec} {
			a, b := encode44(v)
			writeNibbles(a, b)
		}
		writeNibbles(appleEpilogue[0], appleEpilogue[1], 0xEB)

		writeSelfSync(8)
		writeNibbles(0xD5, 0xAA, 0xAD)
		var acc byte
		for _, v := range nibblize62(data) {
			writeNibbles(apple62Encode[v^acc])
			acc = v
		}
		writeNibbles(apple62Encode[acc])
		writeNibbles(appleEpilogue[0], appleEpilogue[1], 0xEB)
	}
	return w.bits, nil
}

func fill(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// BitsToFlux converts a channel bit stream into flux intervals: every 1
// bit is a transition, zeros stretch the interval by one cell. A track
// ending in zero cells gets a closing transition so no cell time is lost.
func BitsToFlux(bits []uint8, cellNS float64, sampleClockHz uint32) []flux.Interval {
	var out []flux.Interval
	elapsed := 0.0
	emit := func() {
		ticks := math.Round(elapsed * float64(sampleClockHz) / 1e9)
		if ticks < 1 {
			ticks = 1
		}
		out = append(out, flux.Interval(ticks))
		elapsed = 0
	}
	for _, b := range bits {
		elapsed += cellNS
		if b == 1 {
			emit()
		}
	}
	if elapsed > 0 {
		emit()
	}
	return out
}

// SynthesizeCapture repeats a track's channel bits for the requested
// number of revolutions and wraps them in a capture with index pulses at
// the revolution boundaries.
func SynthesizeCapture(cyl, head int, bits []uint8, cellNS float64, sampleClockHz uint32, revolutions int) *flux.Capture {
	rev := BitsToFlux(bits, cellNS, sampleClockHz)
	c := &flux.Capture{Cylinder: cyl, Head: head, SampleClockHz: sampleClockHz}
	for r := 0; r < revolutions; r++ {
		c.IndexOffsets = append(c.IndexOffsets, len(c.Intervals))
		c.Intervals = append(c.Intervals, rev...)
	}
	c.IndexOffsets = append(c.IndexOffsets, len(c.Intervals))
	return c
}
