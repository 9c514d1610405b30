// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/tock/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			format TEXT NOT NULL,
			direction TEXT NOT NULL,
			start_ms INTEGER NOT NULL,
			target_ms INTEGER,
			final_ms INTEGER NOT NULL,
			ended INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a finished run. A missing ID is filled with a new UUID and
// returned.
func (s *Store) InsertRun(ctx context.Context, run model.RunRecord) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	var target sql.NullInt64
	if run.TargetMs != nil {
		target = sql.NullInt64{Int64: *run.TargetMs, Valid: true}
	}
	ended := 0
	if run.Ended {
		ended = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, name, format, direction, start_ms, target_ms, final_ms, ended, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Name,
		run.Format,
		run.Direction,
		run.StartMs,
		target,
		run.FinalMs,
		ended,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ListRuns returns runs filtered by cfg, oldest first. Last keeps only the most
// recent runs.
func (s *Store) ListRuns(ctx context.Context, cfg model.HistoryConfig) ([]model.RunRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Name != "" {
		clauses = append(clauses, "name = ?")
		args = append(args, cfg.Name)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "finished_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	limit := ""
	if cfg.Last > 0 {
		limit = "LIMIT ?"
		args = append(args, cfg.Last)
	}
	query := fmt.Sprintf(`SELECT id, name, format, direction, start_ms, target_ms, final_ms, ended, started_at, finished_at
		FROM (
			SELECT * FROM runs
			WHERE %s
			ORDER BY finished_at DESC
			%s
		)
		ORDER BY finished_at ASC`, strings.Join(clauses, " AND "), limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunRecord
	for rows.Next() {
		var run model.RunRecord
		var target sql.NullInt64
		var ended int
		var startedAt, finishedAt string
		if err := rows.Scan(&run.ID, &run.Name, &run.Format, &run.Direction, &run.StartMs, &target, &run.FinalMs, &ended, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		if target.Valid {
			v := target.Int64
			run.TargetMs = &v
		}
		run.Ended = ended != 0
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// ListNames returns every distinct run name, sorted.
func (s *Store) ListNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM runs WHERE name != '' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
