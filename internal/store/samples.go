package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/headpose/internal/loop"
	"github.com/roach88/headpose/internal/xr"
)

// WriteSamples inserts samples for a run in a single transaction.
// Duplicate (run_id, iteration) pairs are silently ignored.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteSamples(ctx context.Context, runID string, samples []loop.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write samples: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples
		(run_id, iteration, valid, pos_x, pos_y, pos_z, rot_x, rot_y, rot_z, rot_w,
		 frame, predicted_display_ns, sampled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write samples: prepare: %w", err)
	}
	defer stmt.Close()

	for _, smp := range samples {
		p := smp.Pose
		_, err := stmt.ExecContext(ctx,
			runID,
			smp.Iteration,
			smp.Valid,
			p.Position.X, p.Position.Y, p.Position.Z,
			p.Orientation.X, p.Orientation.Y, p.Orientation.Z, p.Orientation.W,
			int64(smp.Frame),
			int64(smp.PredictedDisplayTime),
			formatTime(smp.SampledAt),
		)
		if err != nil {
			return fmt.Errorf("write sample %d: %w", smp.Iteration, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write samples: commit: %w", err)
	}
	return nil
}

// WriteSample inserts one sample. See WriteSamples.
func (s *Store) WriteSample(ctx context.Context, runID string, smp loop.Sample) error {
	return s.WriteSamples(ctx, runID, []loop.Sample{smp})
}

// ReadSamples returns the samples of a run, ORDER BY iteration ASC.
// The run's mode is applied to every sample.
//
// Returns an empty slice (not nil) if no samples exist.
func (s *Store) ReadSamples(ctx context.Context, runID string) ([]loop.Sample, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	mode, err := loop.ParseMode(run.Mode)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT iteration, valid, pos_x, pos_y, pos_z, rot_x, rot_y, rot_z, rot_w,
		       frame, predicted_display_ns, sampled_at
		FROM samples
		WHERE run_id = ?
		ORDER BY iteration ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	samples := []loop.Sample{}
	for rows.Next() {
		smp, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		smp.Mode = mode
		samples = append(samples, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

func scanSample(rows *sql.Rows) (loop.Sample, error) {
	var (
		smp       loop.Sample
		p         xr.Pose
		frame     int64
		predicted int64
		sampledAt string
	)
	err := rows.Scan(
		&smp.Iteration,
		&smp.Valid,
		&p.Position.X, &p.Position.Y, &p.Position.Z,
		&p.Orientation.X, &p.Orientation.Y, &p.Orientation.Z, &p.Orientation.W,
		&frame,
		&predicted,
		&sampledAt,
	)
	if err != nil {
		return loop.Sample{}, err
	}
	if smp.Valid {
		smp.Pose = p
	}
	smp.Frame = uint64(frame)
	smp.PredictedDisplayTime = time.Duration(predicted)
	if smp.SampledAt, err = parseTime(sampledAt); err != nil {
		return loop.Sample{}, err
	}
	return smp, nil
}
