package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/headpose/internal/client"
	"github.com/roach88/headpose/internal/loop"
	"github.com/roach88/headpose/internal/mockxr"
	"github.com/roach88/headpose/internal/xr"
)

// Run executes a test scenario and returns the result.
//
// Each scenario gets a fresh simulated runtime and recorder. A failed run,
// such as a dropped session, is not a harness error: it is recorded in
// Result.RunError and fails the scenario unless an init_error or run_error
// assertion expects it. The returned error is reserved for scenarios that
// cannot be set up.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg, err := scenario.loopConfig()
	if err != nil {
		return nil, fmt.Errorf("loop config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("loop config: %w", err)
	}

	rec := mockxr.NewRecorder()
	mcfg, err := scenario.mockConfig(rec)
	if err != nil {
		return nil, fmt.Errorf("runtime config: %w", err)
	}
	rt := mockxr.New(mcfg)

	// Suppress logs in scenario runs
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	result := NewResult()
	counter := loop.ReporterFunc(func(context.Context, loop.Sample) error {
		result.Reports++
		return nil
	})

	runErr := client.With(ctx, rt, scenario.App.Name, scenario.App.Version, func(c *client.Context) error {
		l, err := loop.New(c, cfg, counter, loop.WithLogger(logger))
		if err != nil {
			return err
		}
		stats, err := l.Run(ctx)
		result.Poses = stats.Poses
		result.Misses = stats.Misses
		result.Elapsed = stats.Elapsed()
		result.StaleQueries = c.StaleQueries()
		return err
	}, client.WithLogger(logger))

	if runErr != nil {
		result.InitError = xr.IsInitError(runErr)
		result.RunError = runErr.Error()
	}

	result.Opened = rt.Opened()
	result.Closed = rt.Closed()
	result.Trace = traceFromCalls(rec.Calls())

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// traceFromCalls converts recorded runtime calls into trace events.
func traceFromCalls(calls []mockxr.Call) []TraceEvent {
	trace := make([]TraceEvent, 0, len(calls))
	for _, c := range calls {
		ev := TraceEvent{
			Seq:   c.Seq,
			Op:    string(c.Op),
			Frame: c.Frame,
		}
		switch {
		case c.Err != nil:
			ev.Detail = "error: " + c.Err.Error()
		case c.Op == mockxr.OpLocateHead && c.Valid:
			ev.Detail = "tracked"
		case c.Op == mockxr.OpLocateHead:
			ev.Detail = "lost"
		}
		trace = append(trace, ev)
	}
	return trace
}
