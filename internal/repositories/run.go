// package repositories provides the persistence layer for sync run history.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/recents/internal/shared"
	"github.com/desertthunder/recents/internal/tasks"
)

// Run is one recorded sync run with its per-playlist results.
type Run struct {
	ID         string             `json:"id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Status     string             `json:"status"`
	Message    string             `json:"message"`
	Results    []tasks.SyncResult `json:"results"`
}

// RunRepository persists sync runs into the sync_runs and sync_results tables.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Record stores a completed run and its results in one transaction.
func (r *RunRepository) Record(startedAt, finishedAt time.Time, result *tasks.RunResult) (string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := shared.GenerateID()

	_, err = tx.Exec(
		`INSERT INTO sync_runs (id, started_at, finished_at, status, message) VALUES (?, ?, ?, ?, ?)`,
		id, startedAt.UTC(), finishedAt.UTC(), result.Status, result.Message,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for _, res := range result.Results {
		_, err = tx.Exec(
			`INSERT INTO sync_results (run_id, segment_name, added, removed, duplicates_removed, moved, converged)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, res.SegmentName, res.Added, res.Removed, res.DuplicatesRemoved, res.Moved, res.Converged,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert result for %s: %w", res.SegmentName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	return id, nil
}

// Get retrieves a run by ID with its results.
func (r *RunRepository) Get(id string) (*Run, error) {
	row := r.db.QueryRow(
		`SELECT id, started_at, finished_at, status, message FROM sync_runs WHERE id = ?`, id)

	run := &Run{}
	err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status, &run.Message)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: run %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if run.Results, err = r.results(id); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRecent returns the most recent runs, newest first, with their results.
func (r *RunRepository) ListRecent(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(
		`SELECT id, started_at, finished_at, status, message
		 FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status, &run.Message); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	for _, run := range runs {
		if run.Results, err = r.results(run.ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// results loads the per-playlist rows for one run, in insertion order.
func (r *RunRepository) results(runID string) ([]tasks.SyncResult, error) {
	rows, err := r.db.Query(
		`SELECT segment_name, added, removed, duplicates_removed, moved, converged
		 FROM sync_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []tasks.SyncResult
	for rows.Next() {
		var res tasks.SyncResult
		if err := rows.Scan(&res.SegmentName, &res.Added, &res.Removed,
			&res.DuplicatesRemoved, &res.Moved, &res.Converged); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
