package catalog_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fluxdec/internal/catalog"
	"fluxdec/internal/report"
)

func openStore(t *testing.T) (*catalog.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestRunRoundTrip(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, "disk.scp", "mfm")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if run.ID == "" {
		t.Fatal("run ID empty")
	}

	recs := []report.TrackRecord{
		{Cylinder: 0, Head: 0, Scheme: "mfm", RPM: 300, RevolutionsUsed: 2, Good: 11},
		{Cylinder: 0, Head: 1, Scheme: "mfm", RPM: 300, RevolutionsUsed: 2, Good: 9, Weak: 1, Bad: 1, ProtectionScheme: "Copylock"},
		{Cylinder: 1, Head: 0, Error: "malformed capture"},
	}
	for _, rec := range recs {
		if err := store.RecordTrack(ctx, run.ID, rec); err != nil {
			t.Fatalf("RecordTrack: %v", err)
		}
	}

	summary := report.Summary{Tracks: 3, FailedTracks: 1, GoodSectors: 20, WeakSectors: 1, BadSectors: 1}
	if err := store.FinishRun(ctx, run.ID, summary); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != run.ID || got.Source != "disk.scp" || got.Scheme != "mfm" {
		t.Errorf("run = %+v", got)
	}
	if got.GoodSectors != 20 || got.WeakSectors != 1 || got.BadSectors != 1 {
		t.Errorf("counters = %+v", got)
	}
	if got.FinishedAt.IsZero() {
		t.Error("finished_at not recorded")
	}

	tracks, err := store.RunTracks(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunTracks: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("tracks = %d, want 3", len(tracks))
	}
	if tracks[1].ProtectionScheme != "Copylock" {
		t.Errorf("track 0/1 = %+v", tracks[1])
	}
	if tracks[2].Error != "malformed capture" {
		t.Errorf("failed track not recorded: %+v", tracks[2])
	}
}

func TestFinishUnknownRun(t *testing.T) {
	store, _ := openStore(t)
	err := store.FinishRun(context.Background(), "no-such-run", report.Summary{})
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	run, err := store.BeginRun(context.Background(), "a.scp", "auto")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	runs, err := reopened.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Errorf("runs after reopen = %+v", runs)
	}
}

func TestSecondOpenIsLockedOut(t *testing.T) {
	_, path := openStore(t)

	_, err := catalog.Open(path)
	if !errors.Is(err, catalog.ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
}
