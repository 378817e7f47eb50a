package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/headpose/internal/client"
	"github.com/roach88/headpose/internal/loop"
	"github.com/roach88/headpose/internal/mockxr"
)

func TestRecorder_BatchesAndFlushes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, createTestRun("run-1", testEpoch)))

	rec := NewRecorder(s, "run-1", 2)
	assert.Equal(t, "run-1", rec.RunID())

	require.NoError(t, rec.Report(ctx, createTestSample(1)))
	got, err := s.ReadSamples(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, got, "below batch size nothing is written")

	require.NoError(t, rec.Report(ctx, createTestSample(2)))
	got, err = s.ReadSamples(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, rec.Report(ctx, createTestSample(3)))
	require.NoError(t, rec.Flush(ctx))
	got, err = s.ReadSamples(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestRecorder_DefaultBatch(t *testing.T) {
	rec := NewRecorder(nil, "run-1", 0)
	assert.Equal(t, DefaultBatchSize, rec.batch)
}

func TestRecorder_WithLoop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, createTestRun("run-1", testEpoch)))

	rt := mockxr.New(mockxr.Config{Tick: time.Millisecond})
	rec := NewRecorder(s, "run-1", 0)

	var stats loop.Stats
	var runErr error
	err := client.With(ctx, rt, "Pose Test", 1, func(c *client.Context) error {
		l, err := loop.New(c, loop.Config{
			Mode:       loop.ModeFrameBracketed,
			Iterations: 10,
		}, rec)
		if err != nil {
			return err
		}
		stats, runErr = l.Run(ctx)
		return runErr
	})
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, "run-1", stats, runErr))

	samples, err := s.ReadSamples(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, samples, 10, "loop flush must persist the final partial batch")
	for i, smp := range samples {
		assert.Equal(t, i+1, smp.Iteration)
		assert.True(t, smp.Valid)
	}

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, 10, run.Poses)
}
