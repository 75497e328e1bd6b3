package container

import (
	"encoding/binary"
	"fmt"
	"io"

	"fluxdec/internal/flux"
)

// Raw interval stream: a 16-byte header ("FLXR", version, cylinder,
// head, reserved, sample clock, revolution count, all little-endian)
// followed by one block per revolution, each an interval count and that
// many 32-bit tick values. It is a lossless dump of a single capture,
// meant for synthesized material and test fixtures rather than
// interchange.
const (
	rawSignature  = "FLXR"
	rawVersion    = 1
	rawHeaderSize = 16
)

// WriteRaw writes one capture as a raw interval stream. The capture
// must contain at least one complete revolution.
func WriteRaw(w io.Writer, c *flux.Capture) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("write raw stream: %w", err)
	}
	revs := len(c.IndexOffsets) - 1
	if revs < 1 {
		return rawInvalid("capture has no complete revolution")
	}
	if c.Cylinder < 0 || c.Cylinder > 255 || c.Head < 0 || c.Head > 1 {
		return rawInvalid(fmt.Sprintf("cyl %d head %d outside raw header range", c.Cylinder, c.Head))
	}

	header := make([]byte, rawHeaderSize)
	copy(header, rawSignature)
	header[4] = rawVersion
	header[5] = byte(c.Cylinder)
	header[6] = byte(c.Head)
	binary.LittleEndian.PutUint32(header[8:], c.SampleClockHz)
	binary.LittleEndian.PutUint32(header[12:], uint32(revs))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write raw stream: %w", err)
	}

	for rev := 0; rev < revs; rev++ {
		start, end := c.IndexOffsets[rev], c.IndexOffsets[rev+1]
		block := make([]byte, 4+(end-start)*4)
		binary.LittleEndian.PutUint32(block, uint32(end-start))
		for i, iv := range c.Intervals[start:end] {
			binary.LittleEndian.PutUint32(block[4+i*4:], uint32(iv))
		}
		if _, err := w.Write(block); err != nil {
			return fmt.Errorf("write raw stream: %w", err)
		}
	}
	return nil
}

// ReadRaw parses a raw interval stream back into a capture.
func ReadRaw(r io.Reader) (*flux.Capture, error) {
	header := make([]byte, rawHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read raw stream: %w", err)
	}
	if string(header[:4]) != rawSignature {
		return nil, rawInvalid("bad signature")
	}
	if header[4] != rawVersion {
		return nil, rawInvalid(fmt.Sprintf("unsupported version %d", header[4]))
	}

	c := &flux.Capture{
		Cylinder:      int(header[5]),
		Head:          int(header[6]),
		SampleClockHz: binary.LittleEndian.Uint32(header[8:]),
		IndexOffsets:  []int{0},
	}
	revs := int(binary.LittleEndian.Uint32(header[12:]))
	if revs < 1 {
		return nil, rawInvalid("header declares zero revolutions")
	}

	var count [4]byte
	for rev := 0; rev < revs; rev++ {
		if _, err := io.ReadFull(r, count[:]); err != nil {
			return nil, fmt.Errorf("read raw stream: revolution %d: %w", rev, err)
		}
		n := int(binary.LittleEndian.Uint32(count[:]))
		block := make([]byte, n*4)
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, fmt.Errorf("read raw stream: revolution %d: %w", rev, err)
		}
		for i := 0; i < n; i++ {
			c.Intervals = append(c.Intervals, flux.Interval(binary.LittleEndian.Uint32(block[i*4:])))
		}
		c.IndexOffsets = append(c.IndexOffsets, len(c.Intervals))
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("read raw stream: %w", err)
	}
	return c, nil
}

func rawInvalid(reason string) error {
	return fmt.Errorf("raw stream: %s: %w", reason, ErrInvalidImage)
}
