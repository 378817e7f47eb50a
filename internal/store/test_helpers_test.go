package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/headpose/internal/loop"
	"github.com/roach88/headpose/internal/xr"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		AppName:    "Pose Test",
		AppVersion: 1,
		Mode:       loop.ModeUnsynchronized.String(),
		Iterations: 3,
		Interval:   50 * time.Millisecond,
		ConfigHash: "test-hash",
		StartedAt:  started,
	}
}

// createTestSample creates a sample; even iterations have no pose.
func createTestSample(iteration int) loop.Sample {
	smp := loop.Sample{
		Iteration:            iteration,
		Mode:                 loop.ModeUnsynchronized,
		SampledAt:            testEpoch.Add(time.Duration(iteration) * 50 * time.Millisecond),
		Frame:                uint64(iteration),
		PredictedDisplayTime: time.Duration(iteration) * 11 * time.Millisecond,
	}
	if iteration%2 == 1 {
		smp.Valid = true
		smp.Pose = xr.NewPose(0, 1.6, float64(iteration))
	}
	return smp
}
