package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = "wafermap.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	stmts := []string{`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		wafer_id TEXT NOT NULL,
		name TEXT NOT NULL,
		policy TEXT NOT NULL,
		run_order TEXT NOT NULL,
		stats TEXT NOT NULL,
		composite TEXT NOT NULL,
		changes TEXT NOT NULL,
		excluded TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_wafer ON runs(wafer_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// SaveRun inserts run, replacing any run with the same ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	cols, err := encodeColumns(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, wafer_id, name, policy, run_order, stats, composite, changes, excluded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.WaferID, run.Name, run.Policy,
		cols[0], cols[1], cols[2], cols[3], cols[4],
		run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

const selectRuns = `
	SELECT id, wafer_id, name, policy, run_order, stats, composite, changes, excluded, created_at
	FROM runs`

// GetRun loads one run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns lists runs newest first, optionally for one wafer.
func (s *SQLiteStore) ListRuns(ctx context.Context, opts ListOptions) ([]Run, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if opts.WaferID != "" {
		rows, err = s.db.QueryContext(ctx, selectRuns+` WHERE wafer_id = ? ORDER BY created_at DESC LIMIT ?`,
			opts.WaferID, opts.limit())
	} else {
		rows, err = s.db.QueryContext(ctx, selectRuns+` ORDER BY created_at DESC LIMIT ?`, opts.limit())
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run     Run
		cols    [5]string
		created int64
	)
	if err := sc.Scan(&run.ID, &run.WaferID, &run.Name, &run.Policy,
		&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &created); err != nil {
		return nil, err
	}
	targets := []any{&run.Order, &run.Stats, &run.Composite, &run.Changes, &run.Excluded}
	for i, t := range targets {
		if err := json.Unmarshal([]byte(cols[i]), t); err != nil {
			return nil, fmt.Errorf("decode column %d: %w", i, err)
		}
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	return &run, nil
}

func encodeColumns(run *Run) ([5]string, error) {
	var cols [5]string
	for i, v := range []any{run.Order, run.Stats, run.Composite, run.Changes, run.Excluded} {
		b, err := json.Marshal(v)
		if err != nil {
			return cols, fmt.Errorf("encode run %s: %w", run.ID, err)
		}
		cols[i] = string(b)
	}
	return cols, nil
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
