package bitstream

import "errors"

// ErrEndOfStream signals that a read ran past the last bit. Sync scanners
// treat it as end-of-track rather than a failure.
var ErrEndOfStream = errors.New("end of bit stream")

// Stream is an immutable sequence of bit cells, one value (0 or 1) per
// element.
type Stream struct {
	bits []uint8
}

// New wraps a classified bit-cell slice. The slice is not copied; callers
// must not mutate it afterwards.
func New(bits []uint8) *Stream {
	return &Stream{bits: bits}
}

// FromBytes expands packed bytes MSB-first into a stream. Containers that
// store already-decoded bitstreams (WOZ-style chunks) enter the pipeline
// through this.
func FromBytes(data []byte, bitCount int) *Stream {
	if max := len(data) * 8; bitCount > max || bitCount < 0 {
		bitCount = len(data) * 8
	}
	bits := make([]uint8, bitCount)
	for i := 0; i < bitCount; i++ {
		bits[i] = (data[i/8] >> (7 - uint(i%8))) & 1
	}
	return &Stream{bits: bits}
}

// Len returns the number of bits in the stream.
func (s *Stream) Len() int { return len(s.bits) }

// Bit returns the bit at position i.
func (s *Stream) Bit(i int) (uint8, error) {
	if i < 0 || i >= len(s.bits) {
		return 0, ErrEndOfStream
	}
	return s.bits[i], nil
}

// Bits exposes the raw slice for alignment comparisons. Read-only.
func (s *Stream) Bits() []uint8 { return s.bits }

// Cursor is a fallible read position within a stream.
type Cursor struct {
	s   *Stream
	pos int
}

// NewCursor positions a cursor at bit offset from.
func (s *Stream) NewCursor(from int) *Cursor {
	if from < 0 {
		from = 0
	}
	return &Cursor{s: s, pos: from}
}

// Pos returns the current bit offset.
func (c *Cursor) Pos() int { return c.pos }

// SetPos moves the cursor to an absolute bit offset.
func (c *Cursor) SetPos(pos int) {
	if pos < 0 {
		pos = 0
	}
	c.pos = pos
}

// Remaining returns how many bits are left to read.
func (c *Cursor) Remaining() int {
	if c.pos >= c.s.Len() {
		return 0
	}
	return c.s.Len() - c.pos
}

// ReadBit consumes one bit.
func (c *Cursor) ReadBit() (uint8, error) {
	b, err := c.s.Bit(c.pos)
	if err != nil {
		return 0, err
	}
	c.pos++
	return b, nil
}

// ReadUint consumes n bits MSB-first, n <= 64. The cursor does not move
// when the stream is exhausted mid-read.
func (c *Cursor) ReadUint(n int) (uint64, error) {
	if c.pos+n > c.s.Len() {
		return 0, ErrEndOfStream
	}
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<1 | uint64(c.s.bits[c.pos+i])
	}
	c.pos += n
	return v, nil
}

// PeekUint reads n bits MSB-first without moving the cursor.
func (c *Cursor) PeekUint(n int) (uint64, error) {
	if c.pos+n > c.s.Len() {
		return 0, ErrEndOfStream
	}
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<1 | uint64(c.s.bits[c.pos+i])
	}
	return v, nil
}

// Skip advances the cursor by n bits.
func (c *Cursor) Skip(n int) error {
	if c.pos+n > c.s.Len() {
		return ErrEndOfStream
	}
	c.pos += n
	return nil
}
