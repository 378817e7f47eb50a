package loop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/roach88/headpose/internal/xr"
)

// Reporter receives one Sample per iteration. The loop logs and counts a
// Reporter error and keeps polling, so Report should not block for long.
type Reporter interface {
	Report(ctx context.Context, s Sample) error
}

// Flusher is implemented by reporters that buffer. The loop flushes once
// when Run returns, on every exit path.
type Flusher interface {
	Flush(ctx context.Context) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, s Sample) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, s Sample) error {
	return f(ctx, s)
}

// TextReporter writes one line per sample: the pose's printable form or
// xr.NoPoseMessage.
type TextReporter struct {
	W io.Writer

	// Matrix prints the 4x4 model matrix instead of the one-line form.
	Matrix bool
}

// Report implements Reporter.
func (r *TextReporter) Report(_ context.Context, s Sample) error {
	var line string
	switch {
	case !s.Valid:
		line = xr.NoPoseMessage
	case r.Matrix:
		line = xr.FormatMatrix(s.Pose)
	default:
		line = xr.FormatPose(s.Pose)
	}
	_, err := fmt.Fprintln(r.W, line)
	return err
}

// SampleJSON is the JSON form of a Sample.
type SampleJSON struct {
	Iteration            int      `json:"iteration"`
	Mode                 string   `json:"mode"`
	Valid                bool     `json:"valid"`
	Pose                 *xr.Pose `json:"pose,omitempty"`
	Frame                uint64   `json:"frame"`
	PredictedDisplayTime int64    `json:"predicted_display_ns"`
	SampledAt            string   `json:"sampled_at"`
}

// ToJSON converts a sample to its JSON form.
func (s Sample) ToJSON() SampleJSON {
	out := SampleJSON{
		Iteration:            s.Iteration,
		Mode:                 s.Mode.String(),
		Valid:                s.Valid,
		Frame:                s.Frame,
		PredictedDisplayTime: s.PredictedDisplayTime.Nanoseconds(),
		SampledAt:            s.SampledAt.UTC().Format(time.RFC3339Nano),
	}
	if s.Valid {
		p := s.Pose
		out.Pose = &p
	}
	return out
}

// JSONReporter writes one JSON object per line.
type JSONReporter struct {
	enc *json.Encoder
}

// NewJSONReporter creates a JSONReporter writing to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

// Report implements Reporter.
func (r *JSONReporter) Report(_ context.Context, s Sample) error {
	return r.enc.Encode(s.ToJSON())
}

// multi fans samples out to several reporters in order.
type multi []Reporter

// Multi returns a Reporter that reports to each of rs in order and joins
// their errors. One failing member does not starve the others. Nil reporters
// are skipped.
func Multi(rs ...Reporter) Reporter {
	var m multi
	for _, r := range rs {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

func (m multi) Report(ctx context.Context, s Sample) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush flushes every member that buffers and joins their errors.
func (m multi) Flush(ctx context.Context) error {
	var errs []error
	for _, r := range m {
		if f, ok := r.(Flusher); ok {
			if err := f.Flush(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
