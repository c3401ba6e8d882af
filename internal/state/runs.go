package state

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/weftlabs/weft/internal/workflow"
	"github.com/weftlabs/weft/pkg/models"
)

var _ workflow.Store = (*DB)(nil)

// RecordRunStart inserts a new run row.
func (db *DB) RecordRunStart(ctx context.Context, runID, request string, maxIterations int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO runs (id, request, max_iterations, started_at)
		VALUES (?, ?, ?, ?)
	`, runID, request, maxIterations, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// RecordTask upserts the status and artifacts of one task within a run.
func (db *DB) RecordTask(ctx context.Context, runID string, task *models.Task, status models.TaskStatus, artifacts []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO run_tasks (run_id, task_id, description, status, artifacts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_id, task_id) DO UPDATE SET
			status = excluded.status,
			artifacts = excluded.artifacts
	`, runID, task.ID, task.Description, string(status), strings.Join(artifacts, "\n"))
	if err != nil {
		return fmt.Errorf("record task %s: %w", task.ID, err)
	}
	return nil
}

// RecordRunFinish stamps a run with its terminal state and totals.
func (db *DB) RecordRunFinish(ctx context.Context, runID string, terminal string, iterations, filesGenerated int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		UPDATE runs
		SET terminal = ?, iterations = ?, files_generated = ?, finished_at = ?
		WHERE id = ?
	`, terminal, iterations, filesGenerated, formatTime(time.Now()), runID)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// GetRun returns one run by identifier.
func (db *DB) GetRun(ctx context.Context, runID string) (*models.RunRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, request, max_iterations, iterations, terminal, files_generated, started_at, finished_at
		FROM runs WHERE id = ?
	`, runID)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, request, max_iterations, iterations, terminal, files_generated, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []models.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ListRunTasks returns the tasks recorded for a run, in task order.
func (db *DB) ListRunTasks(ctx context.Context, runID string) ([]models.RunTaskRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT run_id, task_id, description, status, artifacts
		FROM run_tasks WHERE run_id = ? ORDER BY task_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run tasks: %w", err)
	}
	defer rows.Close()

	var out []models.RunTaskRecord
	for rows.Next() {
		var t models.RunTaskRecord
		var desc, artifacts sql.NullString
		if err := rows.Scan(&t.RunID, &t.TaskID, &desc, &t.Status, &artifacts); err != nil {
			return nil, fmt.Errorf("scan run task: %w", err)
		}
		t.Description = desc.String
		if artifacts.Valid && artifacts.String != "" {
			t.Artifacts = strings.Split(artifacts.String, "\n")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.RunRecord, error) {
	var r models.RunRecord
	var terminal sql.NullString
	var startedAt string
	var finishedAt sql.NullString

	if err := s.Scan(&r.ID, &r.Request, &r.MaxIterations, &r.Iterations, &terminal, &r.FilesGenerated, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	r.Terminal = terminal.String
	started, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	r.StartedAt = started
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}
