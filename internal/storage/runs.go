package storage

import (
	"database/sql"
	"fmt"
	"time"
)

type RunStatus string

const (
	RunRunning      RunStatus = "running"
	RunDisconnected RunStatus = "disconnected"
	RunCancelled    RunStatus = "cancelled"
	RunFailed       RunStatus = "failed"
)

// Run is one dispatch loop lifetime, from connect to disconnect or failure.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	Error      string
}

func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (s *Storage) StartRun(id string, startedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, started_at, status)
		VALUES (?, ?, ?)
	`, id, startedAt.UTC(), RunRunning)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

func (s *Storage) FinishRun(id string, finishedAt time.Time, status RunStatus, errMsg string) error {
	var errValue sql.NullString
	if errMsg != "" {
		errValue = sql.NullString{String: errMsg, Valid: true}
	}

	result, err := s.db.Exec(`
		UPDATE runs
		SET finished_at = ?, status = ?, error = ?
		WHERE id = ?
	`, finishedAt.UTC(), status, errValue, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

func (s *Storage) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, finished_at, status, error
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Storage) RecentRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, status, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PruneRuns deletes finished runs that started before cutoff. Runs still
// marked running are kept.
func (s *Storage) PruneRuns(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM runs
		WHERE started_at < ? AND status != ?
	`, cutoff.UTC(), RunRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (s *Storage) CountFailuresSince(since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM runs
		WHERE status = ? AND finished_at >= ?
	`, RunFailed, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		finishedAt sql.NullTime
		errMsg     sql.NullString
	)
	if err := row.Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Status, &errMsg); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	run.Error = errMsg.String
	return &run, nil
}
