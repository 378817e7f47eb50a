package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/headpose/internal/canon"
	"github.com/roach88/headpose/internal/client"
	"github.com/roach88/headpose/internal/forward"
	"github.com/roach88/headpose/internal/loop"
	"github.com/roach88/headpose/internal/mockxr"
	"github.com/roach88/headpose/internal/profile"
	"github.com/roach88/headpose/internal/store"
	"github.com/roach88/headpose/internal/xr"
)

// RunFlags are the loop flags shared by poll and watch.
// Flags the user sets explicitly override the selected profile.
type RunFlags struct {
	Profile      string
	ProfilesFile string

	Mode        string
	Count       int
	Interval    time.Duration
	Duration    time.Duration
	Tick        time.Duration
	Source      string
	App         string
	AppVersion  int
	Unavailable bool
	Matrix      bool

	Record  string
	Forward string

	// IDs allows overriding the run ID generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	IDs store.IDGenerator
}

func (f *RunFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.Profile, "profile", profile.DefaultName, "run profile name")
	fs.StringVar(&f.ProfilesFile, "profiles", "", "CUE file with additional profiles")
	fs.StringVar(&f.Mode, "mode", "unsynchronized", "polling mode (unsynchronized|bracketed)")
	fs.IntVar(&f.Count, "count", 100, "number of reports, 0 for unbounded")
	fs.DurationVar(&f.Interval, "interval", loop.DefaultInterval, "sleep between unsynchronized queries")
	fs.DurationVar(&f.Duration, "duration", 0, "stop after this wall time, 0 for no bound")
	fs.DurationVar(&f.Tick, "tick", mockxr.DefaultTick, "simulated runtime frame period")
	fs.StringVar(&f.Source, "source", "static", "simulated pose source (static|wave|none)")
	fs.StringVar(&f.App, "app", "Pose Test", "application name")
	fs.IntVar(&f.AppVersion, "app-version", 1, "application version")
	fs.BoolVar(&f.Unavailable, "unavailable", false, "simulate a missing runtime")
	fs.BoolVar(&f.Matrix, "matrix", false, "print the model matrix of each pose")
	fs.StringVar(&f.Record, "record", "", "record the run into this SQLite database")
	fs.StringVar(&f.Forward, "forward", "", "forward samples to this collector URL")
}

// resolve loads the selected profile and applies explicitly set flags.
func (f *RunFlags) resolve(cmd *cobra.Command) (profile.Profile, error) {
	set, err := loadProfiles(f.ProfilesFile)
	if err != nil {
		return profile.Profile{}, err
	}
	p, err := set.Lookup(f.Profile)
	if err != nil {
		return profile.Profile{}, err
	}

	changed := cmd.Flags().Changed
	if changed("mode") {
		if p.Mode, err = loop.ParseMode(f.Mode); err != nil {
			return profile.Profile{}, err
		}
	}
	if changed("count") {
		p.Iterations = f.Count
	}
	if changed("interval") {
		p.Interval = f.Interval
	}
	if changed("duration") {
		p.Duration = f.Duration
	}
	if changed("tick") {
		p.Runtime.Tick = f.Tick
	}
	if changed("source") {
		p.Runtime.Source = f.Source
	}
	if changed("app") {
		p.AppName = f.App
	}
	if changed("app-version") {
		p.AppVersion = f.AppVersion
	}
	if changed("unavailable") {
		p.Runtime.Unavailable = f.Unavailable
	}

	if err := p.LoopConfig().Validate(); err != nil {
		return profile.Profile{}, err
	}
	if p.Runtime.Tick <= 0 {
		return profile.Profile{}, fmt.Errorf("tick must be positive, got %s", p.Runtime.Tick)
	}
	return p, nil
}

func loadProfiles(path string) (*profile.Set, error) {
	if path == "" {
		return profile.LoadDefaults()
	}
	return profile.Load(path)
}

// execute runs one loop over a fresh simulated runtime, reporting to display
// and to the recorder and forwarder the flags ask for.
func (f *RunFlags) execute(ctx context.Context, p profile.Profile, display loop.Reporter) (runID string, stats loop.Stats, err error) {
	mcfg, err := p.MockConfig()
	if err != nil {
		return "", loop.Stats{}, WrapExitError(ExitCommandError, "invalid runtime config", err)
	}
	rt := mockxr.New(mcfg)

	ids := f.IDs
	if ids == nil {
		ids = store.UUIDv7Generator{}
	}
	runID = ids.Generate()

	reporters := []loop.Reporter{display}

	if f.Record != "" {
		st, openErr := store.Open(f.Record)
		if openErr != nil {
			return runID, loop.Stats{}, WrapExitError(ExitCommandError, "failed to open database", openErr)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		hash, hashErr := canon.Fingerprint(canon.DomainRunConfig, configSnapshot(p))
		if hashErr != nil {
			return runID, loop.Stats{}, hashErr
		}
		run := store.Run{
			ID:         runID,
			AppName:    p.AppName,
			AppVersion: p.AppVersion,
			Mode:       p.Mode.String(),
			Iterations: p.Iterations,
			Interval:   p.Interval,
			ConfigHash: hash,
			StartedAt:  time.Now(),
		}
		if beginErr := st.BeginRun(ctx, run); beginErr != nil {
			return runID, loop.Stats{}, WrapExitError(ExitCommandError, "failed to record run", beginErr)
		}
		defer func() {
			if finErr := st.FinishRun(context.WithoutCancel(ctx), runID, stats, err); finErr != nil {
				slog.Error("error finishing run", "run_id", runID, "error", finErr)
			}
		}()
		reporters = append(reporters, store.NewRecorder(st, runID, 0))
		slog.Debug("recording run", "run_id", runID, "db", f.Record)
	}

	if f.Forward != "" {
		fw, fwErr := forward.New(forward.Config{
			URL:    f.Forward,
			RunID:  runID,
			App:    p.AppName,
			Mode:   p.Mode.String(),
			Logger: slog.Default(),
		})
		if fwErr != nil {
			return runID, loop.Stats{}, WrapExitError(ExitCommandError, "invalid forward target", fwErr)
		}
		defer fw.Close()
		reporters = append(reporters, fw)
		slog.Debug("forwarding samples", "url", f.Forward)
	}

	slog.Info("run starting",
		"run_id", runID,
		"profile", p.Name,
		"mode", p.Mode,
		"iterations", p.Iterations,
	)

	err = client.With(ctx, rt, p.AppName, p.AppVersion, func(c *client.Context) error {
		l, err := loop.New(c, p.LoopConfig(), loop.Multi(reporters...))
		if err != nil {
			return err
		}
		stats, err = l.Run(ctx)
		slog.Debug("run finished",
			"poses", stats.Poses,
			"misses", stats.Misses,
			"report_errors", stats.ReportErrors,
			"stale_queries", c.StaleQueries(),
			"elapsed", stats.Elapsed(),
		)
		return err
	}, client.WithStateChangeHandler(func(sc client.StateChange) {
		slog.Debug("session state", "state", sc)
	}))

	return runID, stats, err
}

// runExitError maps a loop error to the CLI's exit codes.
// A run stopped by a signal or the user is a normal exit.
func runExitError(err error) error {
	var exitErr *ExitError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case errors.As(err, &exitErr):
		return err
	case xr.IsInitError(err):
		return WrapExitError(ExitInitFailure, "failed to create context", err)
	default:
		return WrapExitError(ExitFailure, "run failed", err)
	}
}

// configSnapshot is the hashed identity of a run configuration.
func configSnapshot(p profile.Profile) map[string]any {
	return map[string]any{
		"app_name":         p.AppName,
		"app_version":      p.AppVersion,
		"mode":             p.Mode.String(),
		"iterations":       p.Iterations,
		"interval_ns":      int64(p.Interval),
		"duration_ns":      int64(p.Duration),
		"tick_ns":          int64(p.Runtime.Tick),
		"source":           p.Runtime.Source,
		"position":         fmt.Sprintf("%.6f,%.6f,%.6f", p.Runtime.Position.X, p.Runtime.Position.Y, p.Runtime.Position.Z),
		"lost_frames":      p.Runtime.LostFrames,
		"unavailable":      p.Runtime.Unavailable,
		"disconnect_after": p.Runtime.DisconnectAfter,
	}
}
