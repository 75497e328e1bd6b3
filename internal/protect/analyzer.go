package protect

import (
	"fmt"
	"sort"

	"fluxdec/internal/fuse"
)

// MarkerKind identifies a class of track anomaly.
type MarkerKind string

const (
	MarkerWeakBits        MarkerKind = "weak-bits"
	MarkerLongTrack       MarkerKind = "long-track"
	MarkerShortTrack      MarkerKind = "short-track"
	MarkerDuplicateSector MarkerKind = "duplicate-sector"
	MarkerMissingSector   MarkerKind = "missing-sector"
	MarkerOrphanData      MarkerKind = "orphan-data"
)

// Marker is a single protection annotation. Start and End delimit the
// affected range: bit positions for weak bits, sector IDs otherwise.
type Marker struct {
	Kind       MarkerKind
	Start      int
	End        int
	Confidence float64
	Detail     string
}

// Config tunes anomaly detection thresholds.
type Config struct {
	// TrackLengthTolerance is the fractional rotation-time deviation
	// above which a track is flagged long or short.
	TrackLengthTolerance float64
}

func DefaultConfig() Config {
	return Config{TrackLengthTolerance: 0.05}
}

// Observations collects the per-track evidence the analyzer consumes.
// All fields are optional; zero values mean "not observed".
type Observations struct {
	// RotationNS is the measured index-to-index rotation time.
	RotationNS int64
	// NominalRotationNS is the expected rotation time for the
	// drive's spindle speed.
	NominalRotationNS int64
	// WeakMarks and HasWeakBits come from multi-revolution fusion.
	WeakMarks   []fuse.WeakMark
	HasWeakBits bool
	// SectorIDs lists every sector ID read from an address field on
	// the track, duplicates included.
	SectorIDs []int
	// ExpectedSectors is the sectors-per-track count for the format,
	// or zero when unknown.
	ExpectedSectors int
	// OrphanData counts data fields found with no preceding address
	// field to claim them.
	OrphanData int
}

// Analysis is the analyzer's output: the markers found plus a named
// scheme when the marker set matches a known protection. Scheme is
// advisory metadata only.
type Analysis struct {
	Markers []Marker
	Scheme  string
}

// Analyze inspects one track's observations and returns its protection
// markers. It is a pure function over the observations.
func Analyze(cfg Config, obs Observations) Analysis {
	var a Analysis

	if m, ok := trackLengthMarker(cfg, obs); ok {
		a.Markers = append(a.Markers, m)
	}
	if obs.HasWeakBits && len(obs.WeakMarks) > 0 {
		a.Markers = append(a.Markers, weakBitsMarker(obs.WeakMarks))
	}
	a.Markers = append(a.Markers, sectorIDMarkers(obs)...)
	if obs.OrphanData > 0 {
		a.Markers = append(a.Markers, Marker{
			Kind:       MarkerOrphanData,
			Confidence: 0.5,
			Detail:     fmt.Sprintf("%d data fields without address fields", obs.OrphanData),
		})
	}

	a.Scheme = matchScheme(a.Markers)
	return a
}

func trackLengthMarker(cfg Config, obs Observations) (Marker, bool) {
	if obs.RotationNS <= 0 || obs.NominalRotationNS <= 0 {
		return Marker{}, false
	}
	deviation := float64(obs.RotationNS-obs.NominalRotationNS) / float64(obs.NominalRotationNS)
	abs := deviation
	if abs < 0 {
		abs = -abs
	}
	if abs <= cfg.TrackLengthTolerance {
		return Marker{}, false
	}
	kind := MarkerLongTrack
	if deviation < 0 {
		kind = MarkerShortTrack
	}
	conf := abs / (2 * cfg.TrackLengthTolerance)
	if conf > 1 {
		conf = 1
	}
	return Marker{
		Kind:       kind,
		Confidence: conf,
		Detail:     fmt.Sprintf("rotation %.1f%% off nominal", deviation*100),
	}, true
}

func weakBitsMarker(marks []fuse.WeakMark) Marker {
	lo, hi := marks[0].BitPos, marks[0].BitPos
	var sum float64
	for _, m := range marks {
		if m.BitPos < lo {
			lo = m.BitPos
		}
		if m.BitPos > hi {
			hi = m.BitPos
		}
		sum += m.Variance
	}
	return Marker{
		Kind:       MarkerWeakBits,
		Start:      lo,
		End:        hi,
		Confidence: sum / float64(len(marks)),
		Detail:     fmt.Sprintf("%d unstable bit positions", len(marks)),
	}
}

func sectorIDMarkers(obs Observations) []Marker {
	if len(obs.SectorIDs) == 0 {
		return nil
	}
	counts := make(map[int]int)
	for _, id := range obs.SectorIDs {
		counts[id]++
	}

	var dups []int
	for id, n := range counts {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Ints(dups)

	var markers []Marker
	for _, id := range dups {
		markers = append(markers, Marker{
			Kind:       MarkerDuplicateSector,
			Start:      id,
			End:        id,
			Confidence: 0.9,
			Detail:     fmt.Sprintf("sector %d appears %d times", id, counts[id]),
		})
	}

	if obs.ExpectedSectors > 0 {
		base := 0
		if _, ok := counts[0]; !ok {
			// C64 and IBM formats start sector numbering at 0
			// and 1 respectively; infer the base from the IDs.
			base = 1
		}
		for s := base; s < base+obs.ExpectedSectors; s++ {
			if _, ok := counts[s]; !ok {
				markers = append(markers, Marker{
					Kind:       MarkerMissingSector,
					Start:      s,
					End:        s,
					Confidence: 0.7,
					Detail:     fmt.Sprintf("sector %d never seen", s),
				})
			}
		}
	}
	return markers
}
