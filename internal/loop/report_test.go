package loop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/headpose/internal/xr"
)

func TestTextReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &TextReporter{W: &buf}

	require.NoError(t, r.Report(context.Background(), Sample{Valid: true, Pose: xr.NewPose(0, 1.6, 0)}))
	require.NoError(t, r.Report(context.Background(), Sample{Valid: false}))

	assert.Equal(t,
		"position=(0.000, 1.600, 0.000) orientation=(0.000, 0.000, 0.000, 1.000)\nno pose received\n",
		buf.String())
}

func TestTextReporter_Matrix(t *testing.T) {
	var buf bytes.Buffer
	r := &TextReporter{W: &buf, Matrix: true}

	require.NoError(t, r.Report(context.Background(), Sample{Valid: true, Pose: xr.NewPose(0, 1.6, 0)}))
	assert.Len(t, strings.Split(strings.TrimRight(buf.String(), "\n"), "\n"), 4)
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporter(&buf)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, r.Report(context.Background(), Sample{
		Iteration: 1, Mode: ModeFrameBracketed, Valid: true, Pose: xr.NewPose(0, 1.6, 0),
		Frame: 1, PredictedDisplayTime: 11 * time.Millisecond, SampledAt: at,
	}))
	require.NoError(t, r.Report(context.Background(), Sample{Iteration: 2, SampledAt: at}))

	dec := json.NewDecoder(&buf)
	var first, second map[string]any
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))

	assert.Equal(t, "bracketed", first["mode"])
	assert.Equal(t, true, first["valid"])
	assert.Equal(t, float64(11_000_000), first["predicted_display_ns"])
	assert.Equal(t, "2026-01-02T03:04:05Z", first["sampled_at"])
	assert.Contains(t, first, "pose")

	assert.Equal(t, false, second["valid"])
	assert.NotContains(t, second, "pose", "invalid samples carry no pose")
}

func TestMulti_ReportsToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	var calls []string
	a := ReporterFunc(func(context.Context, Sample) error { calls = append(calls, "a"); return boom })
	b := ReporterFunc(func(context.Context, Sample) error { calls = append(calls, "b"); return nil })

	err := Multi(a, b).Report(context.Background(), Sample{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, calls, "a failing member must not starve the rest")
}

func TestMulti_FlushJoinsErrors(t *testing.T) {
	m := Multi(&failingFlusher{err: errors.New("one")}, &failingFlusher{err: errors.New("two")}, &TextReporter{W: &bytes.Buffer{}})

	f, ok := m.(Flusher)
	require.True(t, ok)
	err := f.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one")
	assert.Contains(t, err.Error(), "two")
}

type failingFlusher struct{ err error }

func (f *failingFlusher) Report(context.Context, Sample) error { return nil }
func (f *failingFlusher) Flush(context.Context) error          { return f.err }
