package report_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"fluxdec/internal/encoding"
	"fluxdec/internal/protect"
	"fluxdec/internal/report"
	"fluxdec/internal/track"
)

func sampleResult() *track.Result {
	return &track.Result{
		Scheme:            encoding.SchemeMFM,
		RPM:               300,
		RotationNS:        198_000_000,
		NominalRotationNS: 200_000_000,
		RevolutionsUsed:   2,
		Sectors: []track.Sector{
			{Sector: 0, Size: 512, HeaderOK: true, DataOK: true, Confidence: 1},
			{Sector: 1, Size: 512, HeaderOK: true, DataOK: true, Weak: true, Confidence: 0.9},
			{Sector: 2, Size: 512, HeaderOK: true, DataOK: false, Confidence: 0.5},
		},
	}
}

func TestAddTrackCountsSectors(t *testing.T) {
	r := report.New("disk.scp")
	r.AddTrack(4, 0, sampleResult())
	r.Finalize()

	if len(r.Tracks) != 1 {
		t.Fatalf("tracks = %d", len(r.Tracks))
	}
	rec := r.Tracks[0]
	if rec.Good != 1 || rec.Weak != 1 || rec.Bad != 1 {
		t.Errorf("good/weak/bad = %d/%d/%d, want 1/1/1", rec.Good, rec.Weak, rec.Bad)
	}
	if want := 99.0; rec.TimingConsistencyPct != want {
		t.Errorf("timing consistency = %g, want %g", rec.TimingConsistencyPct, want)
	}
	if r.Summary.GoodSectors != 1 || r.Summary.WeakSectors != 1 || r.Summary.BadSectors != 1 {
		t.Errorf("summary = %+v", r.Summary)
	}
}

func TestFinalizeSortsAndSummarizes(t *testing.T) {
	r := report.New("")
	r.AddTrack(2, 1, sampleResult())
	r.AddTrack(0, 0, sampleResult())
	r.AddTrack(2, 0, sampleResult())
	r.AddFailure(1, 0, errors.New("unreadable"))
	r.Finalize()

	order := make([][2]int, 0, len(r.Tracks))
	for _, tr := range r.Tracks {
		order = append(order, [2]int{tr.Cylinder, tr.Head})
	}
	want := [][2]int{{0, 0}, {1, 0}, {2, 0}, {2, 1}}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("track order = %v, want %v", order, want)
		}
	}
	if r.Summary.Tracks != 4 || r.Summary.FailedTracks != 1 {
		t.Errorf("summary = %+v", r.Summary)
	}
	if r.Summary.GoodSectors != 3 {
		t.Errorf("good sectors = %d, want 3", r.Summary.GoodSectors)
	}
}

func TestProtectionsCountTowardSummary(t *testing.T) {
	res := sampleResult()
	res.Protections = []protect.Marker{
		{Kind: protect.MarkerLongTrack, Confidence: 0.8, Detail: "rotation 7.0% off nominal"},
	}
	res.ProtectionScheme = "Protoscan longtrack"

	r := report.New("")
	r.AddTrack(0, 0, res)
	r.Finalize()

	if r.Summary.ProtectedTracks != 1 {
		t.Errorf("protected tracks = %d", r.Summary.ProtectedTracks)
	}
	if r.Tracks[0].ProtectionScheme != "Protoscan longtrack" {
		t.Errorf("protection scheme = %q", r.Tracks[0].ProtectionScheme)
	}
}

func TestWriteJSON(t *testing.T) {
	r := report.New("disk.scp")
	r.RunID = "0c9d6f0a-2b5c-4fa5-9c80-282cc9f7c2ab"
	r.AddTrack(4, 0, sampleResult())
	r.Finalize()

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`"run_id": "0c9d6f0a-2b5c-4fa5-9c80-282cc9f7c2ab"`,
		`"source": "disk.scp"`,
		`"good_sectors": 1`,
		`"header_ok": true`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("json missing %s:\n%s", want, out)
		}
	}
}
