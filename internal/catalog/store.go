package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fluxdec/internal/report"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the
// schema changes; existing databases must be recreated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match
// the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrLocked indicates another fluxdec process holds the catalog lock.
var ErrLocked = errors.New("catalog locked by another process")

// Store manages decode-run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the catalog database at path and
// acquires the catalog lock.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure catalog directory: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire catalog lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

// Close closes the database and releases the catalog lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Run is one catalogued decode run.
type Run struct {
	ID          string
	Source      string
	Scheme      string
	StartedAt   time.Time
	FinishedAt  time.Time
	Tracks      int
	GoodSectors int
	WeakSectors int
	BadSectors  int
}

// BeginRun inserts a new run row and returns its generated ID.
func (s *Store) BeginRun(ctx context.Context, source, scheme string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Source:    source,
		Scheme:    scheme,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, scheme, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Source, run.Scheme, run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordTrack stores one track's outcome under a run.
func (s *Store) RecordTrack(ctx context.Context, runID string, rec report.TrackRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracks (
            run_id, cylinder, head, scheme, rpm, revolutions,
            good, weak, bad, protection_scheme, error
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.Cylinder, rec.Head, rec.Scheme, rec.RPM, rec.RevolutionsUsed,
		rec.Good, rec.Weak, rec.Bad, rec.ProtectionScheme, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert track %d/%d: %w", rec.Cylinder, rec.Head, err)
	}
	return nil
}

// FinishRun stamps the run's completion time and summary counters.
func (s *Store) FinishRun(ctx context.Context, runID string, summary report.Summary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, tracks = ?, good_sectors = ?, weak_sectors = ?, bad_sectors = ?
         WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		summary.Tracks, summary.GoodSectors, summary.WeakSectors, summary.BadSectors,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, scheme, started_at, COALESCE(finished_at, ''),
                tracks, good_sectors, weak_sectors, bad_sectors
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.ID, &run.Source, &run.Scheme, &started, &finished,
			&run.Tracks, &run.GoodSectors, &run.WeakSectors, &run.BadSectors); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse run start time: %w", err)
		}
		if finished != "" {
			if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
				return nil, fmt.Errorf("parse run finish time: %w", err)
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunTracks returns a run's track rows ordered by cylinder then head.
func (s *Store) RunTracks(ctx context.Context, runID string) ([]report.TrackRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cylinder, head, scheme, rpm, revolutions, good, weak, bad, protection_scheme, error
         FROM tracks WHERE run_id = ? ORDER BY cylinder, head`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run tracks: %w", err)
	}
	defer rows.Close()

	var recs []report.TrackRecord
	for rows.Next() {
		var rec report.TrackRecord
		if err := rows.Scan(&rec.Cylinder, &rec.Head, &rec.Scheme, &rec.RPM, &rec.RevolutionsUsed,
			&rec.Good, &rec.Weak, &rec.Bad, &rec.ProtectionScheme, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
