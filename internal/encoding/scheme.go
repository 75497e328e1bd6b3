package encoding

import (
	"errors"
	"fmt"

	"fluxdec/internal/bitstream"
)

// Scheme identifies one of the closed set of encoding families.
type Scheme string

const (
	SchemeFM       Scheme = "fm"
	SchemeMFM      Scheme = "mfm"
	SchemeGCRC64   Scheme = "gcr-c64"
	SchemeGCRApple Scheme = "gcr-apple"
	// SchemeAuto asks the pipeline to infer the family from the interval
	// histogram before decoding.
	SchemeAuto Scheme = "auto"
)

// ParseScheme maps a user-supplied name onto a Scheme.
func ParseScheme(name string) (Scheme, error) {
	switch Scheme(name) {
	case SchemeFM, SchemeMFM, SchemeGCRC64, SchemeGCRApple, SchemeAuto:
		return Scheme(name), nil
	}
	return "", fmt.Errorf("unknown encoding scheme %q", name)
}

// MarkKind classifies the framing marker that follows a sync.
type MarkKind string

const (
	MarkAddress     MarkKind = "address"
	MarkData        MarkKind = "data"
	MarkDeletedData MarkKind = "deleted-data"
	MarkIndex       MarkKind = "index"
	// MarkSector is a self-contained frame carrying header and data
	// together, as Amiga MFM sectors do.
	MarkSector  MarkKind = "sector"
	MarkUnknown MarkKind = "unknown"
)

// AddressInfo is a decoded address/ID field.
type AddressInfo struct {
	Cylinder   int
	Head       int
	Sector     int
	SizeCode   int
	ByteSize   int
	ChecksumOK bool
	// BitPos is the stream offset where the field's sync was found.
	BitPos int
}

// DataInfo is a decoded data field.
type DataInfo struct {
	Bytes      []byte
	ChecksumOK bool
	Deleted    bool
	// BadBytes lists byte offsets whose channel code could not be
	// decoded (illegal MFM pairs, unmapped GCR codes). Decoding
	// continues past them.
	BadBytes []int
	BitPos   int
}

// ErrNotCombined is returned by ReadSector on schemes whose framing keeps
// address and data fields separate.
var ErrNotCombined = errors.New("scheme has no combined sector frames")

// Decoder is the per-family decode contract. Implementations are
// stateless; the cursor carries all position state.
//
// FindSync scans forward for the next sync mark and leaves the cursor on
// the framing marker. A false return means end of track, which is how
// scanning normally terminates, not an error. ReadMarker consumes the
// marker and classifies it. Checksum failures inside ReadAddress,
// ReadData and ReadSector are reported through the ChecksumOK flags, not
// errors; only running out of bits is an error.
type Decoder interface {
	Scheme() Scheme
	FindSync(cur *bitstream.Cursor) bool
	ReadMarker(cur *bitstream.Cursor) (MarkKind, error)
	ReadAddress(cur *bitstream.Cursor) (AddressInfo, error)
	ReadData(cur *bitstream.Cursor, kind MarkKind, byteSize int) (DataInfo, error)
	ReadSector(cur *bitstream.Cursor) (AddressInfo, DataInfo, error)
}

// Options carries the tunables a decoder construction may use.
type Options struct {
	// PhysicalTrack seeds scheme-specific geometry, such as the 1541
	// speed zone used before the first header of a track is decoded.
	PhysicalTrack int
	// CRCSeedFM and CRCSeedMFM override the CRC-16 presets for IBM
	// framing. Zero selects CRCInitFM and CRCInitMFM.
	CRCSeedFM  uint16
	CRCSeedMFM uint16
}

// ForScheme returns the decoder for a concrete scheme. SchemeAuto must be
// resolved through DetectScheme first.
func ForScheme(scheme Scheme, opts Options) (Decoder, error) {
	switch scheme {
	case SchemeFM:
		return newFMDecoder(opts.CRCSeedFM), nil
	case SchemeMFM:
		return newMFMDecoder(opts.CRCSeedMFM), nil
	case SchemeGCRC64:
		return newC64Decoder(opts.PhysicalTrack)
	case SchemeGCRApple:
		return appleDecoder{}, nil
	case SchemeAuto:
		return nil, errors.New("auto scheme must be resolved before constructing a decoder")
	}
	return nil, fmt.Errorf("unknown encoding scheme %q", scheme)
}

// SectorByteSize converts an IBM size code (0-7) to the sector byte
// length: 128 << code.
func SectorByteSize(sizeCode int) int {
	if sizeCode < 0 || sizeCode > 7 {
		return 0
	}
	return 128 << uint(sizeCode)
}
