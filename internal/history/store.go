// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
	_ "modernc.org/sqlite"
)

// Store reads and writes the release journal.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the journal database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// WAL mode so a history query can run while a release writes.
	connStr := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_foreign_keys=ON"

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			version TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS stage_events (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			stage TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS idx_stage_events_run
			ON stage_events(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_version
			ON runs(version)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// BeginRun records a new run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `INSERT INTO runs (id, kind, version, status, started_at)
	          VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Kind,
		run.Version,
		StatusRunning,
		run.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// FinishRun records the run's outcome. A non-nil runErr marks the run
// failed and keeps the message.
func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) error {
	status := StatusSucceeded
	message := ""
	if runErr != nil {
		status = StatusFailed
		message = runErr.Error()
	}

	query := `UPDATE runs SET status = ?, finished_at = ?, error = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query,
		status,
		time.Now().UTC().Format(time.RFC3339),
		message,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run outcome: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &shipwrighterrors.NotFoundError{Resource: "run", ID: runID}
	}
	return nil
}

// RecordStage appends one stage outcome to a run.
func (s *Store) RecordStage(ctx context.Context, event StageEvent) error {
	if event.RunID == "" || event.Stage == "" {
		return fmt.Errorf("stage events require a run id and stage name")
	}

	query := `INSERT INTO stage_events (run_id, stage, status, started_at, finished_at, detail, error)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		event.RunID,
		event.Stage,
		event.Status,
		event.StartedAt.UTC().Format(time.RFC3339),
		event.FinishedAt.UTC().Format(time.RFC3339),
		event.Detail,
		event.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record stage outcome: %w", err)
	}
	return nil
}

// List returns runs matching the filter, newest first. Stage events are
// not loaded; use Get for a full run.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Run, error) {
	query := `SELECT id, kind, version, status, started_at, finished_at, error FROM runs`

	var conds []string
	var args []any
	if filter.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Version != "" {
		conds = append(conds, "version = ?")
		args = append(args, filter.Version)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

// Get returns one run with its stage events in execution order.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	query := `SELECT id, kind, version, status, started_at, finished_at, error
	          FROM runs WHERE id = ?`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &shipwrighterrors.NotFoundError{Resource: "run", ID: runID}
		}
		return nil, err
	}

	stages, err := s.stagesFor(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Stages = stages
	return run, nil
}

func (s *Store) stagesFor(ctx context.Context, runID string) ([]StageEvent, error) {
	query := `SELECT run_id, stage, status, started_at, finished_at, detail, error
	          FROM stage_events WHERE run_id = ? ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage events: %w", err)
	}
	defer rows.Close()

	var stages []StageEvent
	for rows.Next() {
		var event StageEvent
		var startedAt, finishedAt string
		if err := rows.Scan(
			&event.RunID,
			&event.Stage,
			&event.Status,
			&startedAt,
			&finishedAt,
			&event.Detail,
			&event.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to read stage event: %w", err)
		}
		event.StartedAt = parseTime(startedAt)
		event.FinishedAt = parseTime(finishedAt)
		stages = append(stages, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stage events: %w", err)
	}
	return stages, nil
}

// scanner matches *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var startedAt, finishedAt string
	if err := row.Scan(
		&run.ID,
		&run.Kind,
		&run.Version,
		&run.Status,
		&startedAt,
		&finishedAt,
		&run.Error,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)
	return &run, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, value)
	return t
}
