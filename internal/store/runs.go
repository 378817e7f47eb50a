package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/headpose/internal/loop"
)

// ErrRunNotFound is returned by ReadRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the recorded outcome of a run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusCancelled RunStatus = "cancelled"
	StatusFailed    RunStatus = "failed"
)

// StatusFor maps a loop.Run error to the status recorded for it.
func StatusFor(err error) RunStatus {
	switch {
	case err == nil:
		return StatusCompleted
	case errors.Is(err, context.Canceled):
		return StatusCancelled
	default:
		return StatusFailed
	}
}

// Run is one recorded loop run.
type Run struct {
	ID         string
	AppName    string
	AppVersion int
	Mode       string
	Iterations int
	Interval   time.Duration
	ConfigHash string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     RunStatus
	Error      string
	Poses      int
	Misses     int
}

// BeginRun inserts a run row with status running.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) BeginRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		return fmt.Errorf("begin run: empty run id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, app_name, app_version, mode, iterations, interval_ns, config_hash, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		r.AppName,
		r.AppVersion,
		r.Mode,
		r.Iterations,
		int64(r.Interval),
		r.ConfigHash,
		formatTime(r.StartedAt),
		string(StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun records the outcome and counters of a run.
// runErr is the error returned by loop.Run; its message is stored verbatim.
func (s *Store) FinishRun(ctx context.Context, id string, stats loop.Stats, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	finished := stats.Finished
	if finished.IsZero() {
		finished = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, status = ?, error = ?, poses = ?, misses = ?
		WHERE id = ?
	`,
		formatTime(finished),
		string(StatusFor(runErr)),
		msg,
		stats.Poses,
		stats.Misses,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// ReadRun returns a single run by id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	return r, nil
}

// ListRuns returns recorded runs, newest first.
// limit <= 0 returns all runs.
//
// Returns an empty slice (not nil) if nothing has been recorded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

const runColumns = `id, app_name, app_version, mode, iterations, interval_ns, config_hash,
		started_at, finished_at, status, error, poses, misses`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                 Run
		intervalNS        int64
		started, finished string
		status            string
	)
	err := sc.Scan(
		&r.ID,
		&r.AppName,
		&r.AppVersion,
		&r.Mode,
		&r.Iterations,
		&intervalNS,
		&r.ConfigHash,
		&started,
		&finished,
		&status,
		&r.Error,
		&r.Poses,
		&r.Misses,
	)
	if err != nil {
		return Run{}, err
	}
	r.Interval = time.Duration(intervalNS)
	r.Status = RunStatus(status)
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if r.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, err
	}
	return r, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
