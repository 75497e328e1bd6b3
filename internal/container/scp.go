package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"fluxdec/internal/flux"
)

// SuperCard Pro image layout: a 16-byte header, a table of 168
// little-endian track offsets, then per-track data headers. Each track
// data header is "TRK" plus the track number followed by one 12-byte
// entry per revolution (index time, flux count, data offset relative to
// the track header). Flux words are big-endian 16-bit tick counts; a
// zero word adds 65536 ticks to the next word.
const (
	scpSignature   = "SCP"
	scpHeaderSize  = 16
	scpMaxTracks   = 168
	scpTrackTable  = scpMaxTracks * 4
	scpRevEntry    = 12
	scpBaseClockHz = 40_000_000
)

// SCP header flags.
const (
	scpFlagIndex  = 0x01
	scpFlag96TPI  = 0x02
	scpFlag360RPM = 0x04
)

// ErrInvalidImage marks structurally invalid image files. Errors
// returned for such input wrap this sentinel.
var ErrInvalidImage = errors.New("invalid flux image")

// SCPImage is a parsed SuperCard Pro file. Track numbers follow the SCP
// convention: cylinder*2 + head.
type SCPImage struct {
	Version     byte
	DiskType    byte
	Revolutions int
	StartTrack  int
	EndTrack    int
	Flags       byte
	Resolution  byte

	tracks map[int]*flux.Capture
}

// Tracks returns the track numbers present in the image, ascending.
func (img *SCPImage) Tracks() []int {
	nums := make([]int, 0, len(img.tracks))
	for n := range img.tracks {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Capture returns the capture for an SCP track number.
func (img *SCPImage) Capture(track int) (*flux.Capture, bool) {
	c, ok := img.tracks[track]
	return c, ok
}

// CaptureFor returns the capture for a physical cylinder and head.
func (img *SCPImage) CaptureFor(cylinder, head int) (*flux.Capture, bool) {
	return img.Capture(cylinder*2 + head)
}

// ReadSCP parses a SuperCard Pro image. Tracks with a zero offset table
// entry are absent from the result; revolutions with no flux data are
// skipped.
func ReadSCP(r io.Reader) (*SCPImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read scp image: %w", err)
	}
	if len(data) < scpHeaderSize+scpTrackTable {
		return nil, scpInvalid("file shorter than header and track table")
	}
	if string(data[:3]) != scpSignature {
		return nil, scpInvalid("bad signature")
	}

	img := &SCPImage{
		Version:     data[3],
		DiskType:    data[4],
		Revolutions: int(data[5]),
		StartTrack:  int(data[6]),
		EndTrack:    int(data[7]),
		Flags:       data[8],
		Resolution:  data[11],
		tracks:      make(map[int]*flux.Capture),
	}
	if img.Revolutions == 0 {
		return nil, scpInvalid("header declares zero revolutions")
	}
	sampleClock := uint32(scpBaseClockHz / (int(img.Resolution) + 1))

	for track := 0; track < scpMaxTracks; track++ {
		off := binary.LittleEndian.Uint32(data[scpHeaderSize+track*4:])
		if off == 0 {
			continue
		}
		capt, err := parseSCPTrack(data, track, int(off), img.Revolutions, sampleClock)
		if err != nil {
			return nil, err
		}
		if capt != nil {
			img.tracks[track] = capt
		}
	}
	return img, nil
}

func parseSCPTrack(data []byte, track, off, revolutions int, sampleClock uint32) (*flux.Capture, error) {
	if off+4+revolutions*scpRevEntry > len(data) {
		return nil, scpInvalid(fmt.Sprintf("track %d: header beyond end of file", track))
	}
	tdh := data[off:]
	if string(tdh[:3]) != "TRK" {
		return nil, scpInvalid(fmt.Sprintf("track %d: bad track header signature", track))
	}
	if int(tdh[3]) != track {
		return nil, scpInvalid(fmt.Sprintf("track %d: header claims track %d", track, tdh[3]))
	}

	capt := &flux.Capture{
		Cylinder:      track / 2,
		Head:          track % 2,
		SampleClockHz: sampleClock,
		IndexOffsets:  []int{0},
	}
	for rev := 0; rev < revolutions; rev++ {
		entry := tdh[4+rev*scpRevEntry:]
		fluxCount := int(binary.LittleEndian.Uint32(entry[4:]))
		dataOff := int(binary.LittleEndian.Uint32(entry[8:]))
		if fluxCount == 0 || dataOff == 0 {
			continue
		}
		start := off + dataOff
		end := start + fluxCount*2
		if start < 0 || end > len(data) {
			return nil, scpInvalid(fmt.Sprintf("track %d rev %d: flux data beyond end of file", track, rev))
		}

		var overflow uint32
		for i := start; i < end; i += 2 {
			word := binary.BigEndian.Uint16(data[i:])
			if word == 0 {
				overflow += 65536
				continue
			}
			capt.Intervals = append(capt.Intervals, flux.Interval(uint32(word)+overflow))
			overflow = 0
		}
		capt.IndexOffsets = append(capt.IndexOffsets, len(capt.Intervals))
	}
	if len(capt.Intervals) == 0 {
		return nil, nil
	}
	return capt, nil
}

// WriteSCP writes captures as a SuperCard Pro image. All captures must
// share a sample clock dividing the 40 MHz SCP base clock and carry the
// same revolution count. Intervals that are exact multiples of 65536
// ticks cannot be represented and are rejected.
func WriteSCP(w io.Writer, diskType byte, captures []*flux.Capture) error {
	if len(captures) == 0 {
		return scpInvalid("no captures to write")
	}
	sampleClock := captures[0].SampleClockHz
	if sampleClock == 0 || scpBaseClockHz%int(sampleClock) != 0 {
		return scpInvalid(fmt.Sprintf("sample clock %d Hz does not divide the 40 MHz base clock", sampleClock))
	}
	resolution := scpBaseClockHz/int(sampleClock) - 1
	if resolution > 255 {
		return scpInvalid(fmt.Sprintf("sample clock %d Hz below SCP resolution range", sampleClock))
	}

	revolutions := 0
	minTrack, maxTrack := scpMaxTracks, 0
	byTrack := make(map[int]*flux.Capture, len(captures))
	for _, c := range captures {
		if c.SampleClockHz != sampleClock {
			return scpInvalid("captures disagree on sample clock")
		}
		revs := len(c.IndexOffsets) - 1
		if revs < 1 {
			return scpInvalid(fmt.Sprintf("cyl %d head %d: capture has no complete revolution", c.Cylinder, c.Head))
		}
		if revolutions == 0 {
			revolutions = revs
		} else if revs != revolutions {
			return scpInvalid("captures disagree on revolution count")
		}
		track := c.Cylinder*2 + c.Head
		if track < 0 || track >= scpMaxTracks {
			return scpInvalid(fmt.Sprintf("cyl %d head %d: outside SCP track range", c.Cylinder, c.Head))
		}
		if _, dup := byTrack[track]; dup {
			return scpInvalid(fmt.Sprintf("duplicate capture for track %d", track))
		}
		byTrack[track] = c
		if track < minTrack {
			minTrack = track
		}
		if track > maxTrack {
			maxTrack = track
		}
	}

	header := make([]byte, scpHeaderSize)
	copy(header, scpSignature)
	header[3] = 0x19 // version 1.9
	header[4] = diskType
	header[5] = byte(revolutions)
	header[6] = byte(minTrack)
	header[7] = byte(maxTrack)
	header[8] = scpFlagIndex
	header[11] = byte(resolution)

	table := make([]byte, scpTrackTable)
	var body []byte
	for _, track := range sortedTracks(byTrack) {
		c := byTrack[track]
		binary.LittleEndian.PutUint32(table[track*4:], uint32(scpHeaderSize+scpTrackTable+len(body)))

		tdh := make([]byte, 4+revolutions*scpRevEntry)
		copy(tdh, "TRK")
		tdh[3] = byte(track)

		var fluxData []byte
		for rev := 0; rev < revolutions; rev++ {
			start, end := c.IndexOffsets[rev], c.IndexOffsets[rev+1]
			dataOff := len(tdh) + len(fluxData)

			var ticks uint64
			words := 0
			for _, iv := range c.Intervals[start:end] {
				ticks += uint64(iv)
				v := uint32(iv)
				for v >= 65536 {
					fluxData = append(fluxData, 0, 0)
					words++
					v -= 65536
				}
				if v == 0 {
					return scpInvalid(fmt.Sprintf("track %d: interval is an exact multiple of 65536 ticks", track))
				}
				fluxData = binary.BigEndian.AppendUint16(fluxData, uint16(v))
				words++
			}

			entry := tdh[4+rev*scpRevEntry:]
			binary.LittleEndian.PutUint32(entry, uint32(ticks))
			binary.LittleEndian.PutUint32(entry[4:], uint32(words))
			binary.LittleEndian.PutUint32(entry[8:], uint32(dataOff))
		}
		body = append(body, tdh...)
		body = append(body, fluxData...)
	}

	var checksum uint32
	for _, b := range table {
		checksum += uint32(b)
	}
	for _, b := range body {
		checksum += uint32(b)
	}
	binary.LittleEndian.PutUint32(header[12:], checksum)

	for _, chunk := range [][]byte{header, table, body} {
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("write scp image: %w", err)
		}
	}
	return nil
}

func sortedTracks(byTrack map[int]*flux.Capture) []int {
	nums := make([]int, 0, len(byTrack))
	for n := range byTrack {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

func scpInvalid(reason string) error {
	return fmt.Errorf("scp: %s: %w", reason, ErrInvalidImage)
}
