package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"

	"fluxdec/internal/track"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SectorRecord is one decoded sector's metadata, without payload bytes.
type SectorRecord struct {
	Sector     int     `json:"sector"`
	Size       int     `json:"size"`
	HeaderOK   bool    `json:"header_ok"`
	DataOK     bool    `json:"data_ok"`
	Weak       bool    `json:"weak"`
	Deleted    bool    `json:"deleted"`
	Confidence float64 `json:"confidence"`
}

// ProtectionRecord is one protection marker in report form.
type ProtectionRecord struct {
	Kind       string  `json:"kind"`
	Detail     string  `json:"detail,omitempty"`
	Confidence float64 `json:"confidence"`
}

// TrackRecord aggregates one track's decode outcome.
type TrackRecord struct {
	Cylinder             int                `json:"cylinder"`
	Head                 int                `json:"head"`
	Scheme               string             `json:"scheme"`
	RPM                  float64            `json:"rpm"`
	RevolutionsUsed      int                `json:"revolutions_used"`
	TimingConsistencyPct float64            `json:"timing_consistency_pct"`
	Good                 int                `json:"good"`
	Weak                 int                `json:"weak"`
	Bad                  int                `json:"bad"`
	Sectors              []SectorRecord     `json:"sectors"`
	Protections          []ProtectionRecord `json:"protections,omitempty"`
	ProtectionScheme     string             `json:"protection_scheme,omitempty"`
	Error                string             `json:"error,omitempty"`
}

// Summary rolls the per-track counters up to disk level.
type Summary struct {
	Tracks               int     `json:"tracks"`
	FailedTracks         int     `json:"failed_tracks"`
	ProtectedTracks      int     `json:"protected_tracks"`
	GoodSectors          int     `json:"good_sectors"`
	WeakSectors          int     `json:"weak_sectors"`
	BadSectors           int     `json:"bad_sectors"`
	TimingConsistencyPct float64 `json:"timing_consistency_pct"`
}

// Report is a whole decode run's outcome.
type Report struct {
	GeneratedAt time.Time     `json:"generated_at"`
	RunID       string        `json:"run_id,omitempty"`
	Source      string        `json:"source,omitempty"`
	Summary     Summary       `json:"summary"`
	Tracks      []TrackRecord `json:"tracks"`
}

// New starts an empty report for the named capture source.
func New(source string) *Report {
	return &Report{GeneratedAt: time.Now().UTC(), Source: source}
}

// AddTrack folds one decoded track into the report.
func (r *Report) AddTrack(cylinder, head int, res *track.Result) {
	rec := TrackRecord{
		Cylinder:             cylinder,
		Head:                 head,
		Scheme:               string(res.Scheme),
		RPM:                  res.RPM,
		RevolutionsUsed:      int(res.RevolutionsUsed),
		TimingConsistencyPct: timingConsistency(res.RotationNS, res.NominalRotationNS),
		ProtectionScheme:     res.ProtectionScheme,
	}
	for _, s := range res.Sectors {
		rec.Sectors = append(rec.Sectors, SectorRecord{
			Sector:     s.Sector,
			Size:       s.Size,
			HeaderOK:   s.HeaderOK,
			DataOK:     s.DataOK,
			Weak:       s.Weak,
			Deleted:    s.Deleted,
			Confidence: s.Confidence,
		})
		switch {
		case !s.HeaderOK || !s.DataOK:
			rec.Bad++
		case s.Weak:
			rec.Weak++
		default:
			rec.Good++
		}
	}
	for _, m := range res.Protections {
		rec.Protections = append(rec.Protections, ProtectionRecord{
			Kind:       string(m.Kind),
			Detail:     m.Detail,
			Confidence: m.Confidence,
		})
	}
	r.Tracks = append(r.Tracks, rec)
}

// AddFailure records a track whose decode did not produce a result.
func (r *Report) AddFailure(cylinder, head int, err error) {
	r.Tracks = append(r.Tracks, TrackRecord{
		Cylinder: cylinder,
		Head:     head,
		Error:    err.Error(),
	})
}

// Finalize sorts the tracks and computes the disk-level summary. Call it
// once, after the last AddTrack.
func (r *Report) Finalize() {
	sort.SliceStable(r.Tracks, func(i, j int) bool {
		if r.Tracks[i].Cylinder != r.Tracks[j].Cylinder {
			return r.Tracks[i].Cylinder < r.Tracks[j].Cylinder
		}
		return r.Tracks[i].Head < r.Tracks[j].Head
	})

	var sum Summary
	var timingSum float64
	var timed int
	for _, t := range r.Tracks {
		sum.Tracks++
		if t.Error != "" {
			sum.FailedTracks++
			continue
		}
		sum.GoodSectors += t.Good
		sum.WeakSectors += t.Weak
		sum.BadSectors += t.Bad
		if len(t.Protections) > 0 {
			sum.ProtectedTracks++
		}
		timingSum += t.TimingConsistencyPct
		timed++
	}
	if timed > 0 {
		sum.TimingConsistencyPct = timingSum / float64(timed)
	}
	r.Summary = sum
}

// WriteJSON serializes the report with stable field order and two-space
// indentation.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func timingConsistency(rotationNS, nominalNS float64) float64 {
	if rotationNS <= 0 || nominalNS <= 0 {
		return 0
	}
	pct := 100 * (1 - math.Abs(rotationNS-nominalNS)/nominalNS)
	if pct < 0 {
		return 0
	}
	return pct
}
