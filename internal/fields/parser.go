package fields

import (
	"errors"

	"fluxdec/internal/bitstream"
	"fluxdec/internal/encoding"
)

// Pair is one address field and the data field physically sequenced
// after it. Data is nil when no data field claimed the address before
// the track ended.
type Pair struct {
	Address encoding.AddressInfo
	Data    *encoding.DataInfo
}

// Pairing is everything the parser recovered from one revolution.
type Pairing struct {
	// Pairs holds address fields in stream order.
	Pairs []Pair
	// Orphans holds data fields that appeared before any unmatched
	// address field. They are excluded from sector assembly but feed
	// protection analysis.
	Orphans []encoding.DataInfo
	// Marks counts framing markers seen, keyed by kind.
	Marks map[encoding.MarkKind]int
}

// defaultOrphanSize is the read size for a data field with no address
// to tell us better. 512 covers the common MFM formats; the GCR
// decoders ignore the hint.
const defaultOrphanSize = 512

// Parse runs the field state machine over one revolution's bit stream.
// expectedTrack biases address/data pairing toward headers of the track
// being decoded; pass -1 when the logical track is unknown.
//
// End of stream is the normal terminal state. The only errors returned
// are structural ones from the decoder, never checksum failures.
func Parse(dec encoding.Decoder, stream *bitstream.Stream, expectedTrack int) (*Pairing, error) {
	out := &Pairing{Marks: make(map[encoding.MarkKind]int)}
	cur := stream.NewCursor(0)

	for dec.FindSync(cur) {
		kind, err := dec.ReadMarker(cur)
		if err != nil {
			break // marker truncated by end of track
		}
		out.Marks[kind]++

		switch kind {
		case encoding.MarkAddress:
			addr, err := dec.ReadAddress(cur)
			if errors.Is(err, bitstream.ErrEndOfStream) {
				return out, nil
			}
			if err != nil {
				return out, err
			}
			out.Pairs = append(out.Pairs, Pair{Address: addr})

		case encoding.MarkData, encoding.MarkDeletedData:
			idx := out.claimableAddress(expectedTrack)
			size := defaultOrphanSize
			if idx >= 0 && out.Pairs[idx].Address.ByteSize > 0 {
				size = out.Pairs[idx].Address.ByteSize
			}
			di, err := dec.ReadData(cur, kind, size)
			if errors.Is(err, bitstream.ErrEndOfStream) {
				return out, nil
			}
			if err != nil {
				return out, err
			}
			if idx >= 0 {
				out.Pairs[idx].Data = &di
			} else {
				out.Orphans = append(out.Orphans, di)
			}

		case encoding.MarkSector:
			addr, di, err := dec.ReadSector(cur)
			if errors.Is(err, bitstream.ErrEndOfStream) {
				return out, nil
			}
			if err != nil {
				return out, err
			}
			out.Pairs = append(out.Pairs, Pair{Address: addr, Data: &di})

		case encoding.MarkIndex:
			// Track-start marker, nothing to read.

		default:
			// Unknown marker: resynchronize one bit further on.
			if err := cur.Skip(1); err != nil {
				return out, nil
			}
		}
	}
	return out, nil
}

// claimableAddress finds the pair index a data field should attach to:
// the most recent unmatched address, preferring one whose track number
// matches the track being decoded. Headers always precede their data on
// real media, so recency models physical sequencing without demanding
// byte-offset adjacency.
func (p *Pairing) claimableAddress(expectedTrack int) int {
	fallback := -1
	for i := len(p.Pairs) - 1; i >= 0; i-- {
		if p.Pairs[i].Data != nil {
			continue
		}
		if expectedTrack < 0 || p.Pairs[i].Address.Cylinder == expectedTrack {
			return i
		}
		if fallback < 0 {
			fallback = i
		}
	}
	return fallback
}
