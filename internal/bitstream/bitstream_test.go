package bitstream

import (
	"errors"
	"testing"
)

func TestFromBytesExpandsMSBFirst(t *testing.T) {
	s := FromBytes([]byte{0xA1}, 8)
	want := []uint8{1, 0, 1, 0, 0, 0, 0, 1}
	for i, b := range want {
		got, err := s.Bit(i)
		if err != nil {
			t.Fatalf("Bit(%d): %v", i, err)
		}
		if got != b {
			t.Errorf("bit %d: got %d want %d", i, got, b)
		}
	}
}

func TestFromBytesPartialByte(t *testing.T) {
	s := FromBytes([]byte{0xFF, 0x00}, 10)
	if s.Len() != 10 {
		t.Fatalf("Len = %d, want 10", s.Len())
	}
}

func TestCursorReadUint(t *testing.T) {
	s := FromBytes([]byte{0x44, 0x89}, 16)
	c := s.NewCursor(0)

	v, err := c.ReadUint(16)
	if err != nil {
		t.Fatalf("ReadUint: %v", err)
	}
	if v != 0x4489 {
		t.Errorf("got %#x, want 0x4489", v)
	}
	if c.Pos() != 16 {
		t.Errorf("pos = %d, want 16", c.Pos())
	}
}

func TestCursorEndOfStream(t *testing.T) {
	s := New([]uint8{1, 0, 1})
	c := s.NewCursor(0)

	if _, err := c.ReadUint(4); !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}
	if c.Pos() != 0 {
		t.Errorf("cursor moved on failed read: pos %d", c.Pos())
	}
	if _, err := c.ReadUint(3); err != nil {
		t.Fatalf("exact-length read failed: %v", err)
	}
	if _, err := c.ReadBit(); !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("expected ErrEndOfStream after exhaustion, got %v", err)
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	s := New([]uint8{1, 1, 0, 0})
	c := s.NewCursor(0)

	v, err := c.PeekUint(2)
	if err != nil || v != 3 {
		t.Fatalf("PeekUint = %d, %v", v, err)
	}
	if c.Pos() != 0 {
		t.Errorf("peek advanced cursor to %d", c.Pos())
	}
}
