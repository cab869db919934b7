// Package historydb keeps the (number, status) snapshot of every publishing
// run in a SQLite database, so a later run can diff against the last one
// without the previous table-of-contents document.
package historydb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cplusplus/lib-issues-software/core/diff"
	"github.com/cplusplus/lib-issues-software/internal/sqlitedriver"
	"github.com/cplusplus/lib-issues-software/internal/validation"
)

// ErrNoRuns is returned by Latest and Previous when no matching run has been saved.
var ErrNoRuns = errors.New("history database has no runs")

// ErrUnknownRun is returned by Load for a run ID that is not stored.
var ErrUnknownRun = errors.New("unknown run")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		revision   TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS entries (
		run_id TEXT NOT NULL,
		num    INTEGER NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (run_id, num)
	)`,
}

// Run describes one saved snapshot.
type Run struct {
	ID        string
	Revision  string
	CreatedAt time.Time
	Issues    int
}

// Store is a snapshot history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "history.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	if err := checkExisting(path); err != nil {
		return nil, err
	}
	db, err := sqlitedriver.OpenContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// checkExisting rejects a non-empty file at path that is not a SQLite
// database.
func checkExisting(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.Size() == 0) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	kind, err := validation.ValidateFileType(f, path)
	if err == nil && kind != validation.FileTypeSQLite {
		err = fmt.Errorf("%w: content is %s", validation.ErrFileType, kind)
	}
	if err != nil {
		return fmt.Errorf("history database %s: %w", path, err)
	}
	return nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores snap as a new run and returns its description.
func (s *Store) Save(ctx context.Context, revision string, snap diff.Snapshot, at time.Time) (_ Run, retErr error) {
	run := Run{
		ID:        uuid.NewString(),
		Revision:  revision,
		CreatedAt: at.UTC().Truncate(time.Second),
		Issues:    len(snap),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, revision, created_at) VALUES (?, ?, ?)`,
		run.ID, run.Revision, run.CreatedAt.Format(time.RFC3339)); err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (run_id, num, status) VALUES (?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("prepare entries: %w", err)
	}
	defer stmt.Close()
	for _, e := range snap {
		if _, err := stmt.ExecContext(ctx, run.ID, e.Num, e.Status); err != nil {
			return Run{}, fmt.Errorf("insert issue %d: %w", e.Num, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit: %w", err)
	}
	return run, nil
}

// Latest returns the most recently saved run and its snapshot.
func (s *Store) Latest(ctx context.Context) (Run, diff.Snapshot, error) {
	return s.last(ctx, ``)
}

// Previous returns the most recent run saved for a revision other than
// revision, so that publishing a mailing again diffs against the one before.
func (s *Store) Previous(ctx context.Context, revision string) (Run, diff.Snapshot, error) {
	return s.last(ctx, `WHERE r.revision <> ?`, revision)
}

func (s *Store) last(ctx context.Context, where string, args ...any) (Run, diff.Snapshot, error) {
	runs, err := s.query(ctx, where+` ORDER BY r.seq DESC LIMIT 1`, args...)
	if err != nil {
		return Run{}, nil, err
	}
	if len(runs) == 0 {
		return Run{}, nil, ErrNoRuns
	}
	snap, err := s.Load(ctx, runs[0].ID)
	if err != nil {
		return Run{}, nil, err
	}
	return runs[0], snap, nil
}

// Runs lists every saved run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	return s.query(ctx, `ORDER BY r.seq`)
}

func (s *Store) query(ctx context.Context, clause string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.revision, r.created_at,
		       (SELECT COUNT(*) FROM entries e WHERE e.run_id = r.id)
		FROM runs r `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			created string
		)
		if err := rows.Scan(&run.ID, &run.Revision, &created, &run.Issues); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if run.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("run %s: bad timestamp: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Load returns the snapshot saved under runID, sorted by number.
func (s *Store) Load(ctx context.Context, runID string) (diff.Snapshot, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("select run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT num, status FROM entries WHERE run_id = ? ORDER BY num`, runID)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snap := diff.Snapshot{}
	for rows.Next() {
		var e diff.Entry
		if err := rows.Scan(&e.Num, &e.Status); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		snap = append(snap, e)
	}
	return snap, rows.Err()
}
