package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/roach88/headpose/internal/client"
	"github.com/roach88/headpose/internal/xr"
)

// Defaults taken from the reference polling example.
const (
	DefaultIterations = 100
	DefaultInterval   = 50 * time.Millisecond
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("loop already run")

// Mode selects how the loop paces pose queries.
type Mode int

const (
	ModeUnsynchronized Mode = iota
	ModeFrameBracketed
)

// String returns the canonical mode name.
func (m Mode) String() string {
	switch m {
	case ModeUnsynchronized:
		return "unsynchronized"
	case ModeFrameBracketed:
		return "bracketed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "unsynchronized" (or "unsync") and "bracketed"
// (or "frame-bracketed").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unsynchronized", "unsync":
		return ModeUnsynchronized, nil
	case "bracketed", "frame-bracketed":
		return ModeFrameBracketed, nil
	default:
		return 0, fmt.Errorf("invalid mode %q: must be unsynchronized or bracketed", s)
	}
}

// State is the loop's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Frames is the slice of client.Context the loop drives.
type Frames interface {
	BeginFrame() error
	EndFrame() error
	WaitFrame(ctx context.Context) error
	GetHeadPose() (bool, xr.Pose)
}

// frameStater is implemented by client.Context; samples carry its timing
// when available.
type frameStater interface {
	FrameState() client.FrameState
}

// Config controls one run.
type Config struct {
	Mode Mode

	// Iterations is the number of report steps. Zero runs until the context
	// is cancelled or Duration elapses.
	Iterations int

	// Interval is the unsynchronized sleep. Defaults to DefaultInterval.
	// Ignored in bracketed mode.
	Interval time.Duration

	// Duration bounds the run's wall time. Zero means no bound. Reaching it
	// ends the run normally.
	Duration time.Duration
}

// Validate checks the config for values no run can honour.
func (c Config) Validate() error {
	if c.Mode != ModeUnsynchronized && c.Mode != ModeFrameBracketed {
		return fmt.Errorf("invalid mode %d", int(c.Mode))
	}
	if c.Iterations < 0 {
		return fmt.Errorf("iterations must be non-negative, got %d", c.Iterations)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must be non-negative, got %s", c.Interval)
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration must be non-negative, got %s", c.Duration)
	}
	return nil
}

// Sample is one report step's observation.
type Sample struct {
	// Iteration is 1-based.
	Iteration int
	Mode      Mode
	Valid     bool
	Pose      xr.Pose
	SampledAt time.Time

	// Frame and PredictedDisplayTime come from the Context's FrameState
	// at the time of the query.
	Frame                uint64
	PredictedDisplayTime time.Duration
}

// Stats summarizes a run.
type Stats struct {
	Iterations int
	Poses      int
	Misses     int

	// ReportErrors counts failed Report and Flush calls.
	ReportErrors int

	Started  time.Time
	Finished time.Time

	// Spacing holds the wall time between the starts of consecutive iterations.
	Spacing []time.Duration
}

// Elapsed returns the run's wall time.
func (s Stats) Elapsed() time.Duration {
	if s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// MeanSpacing returns the average iteration spacing, or zero with fewer than
// two iterations.
func (s Stats) MeanSpacing() time.Duration {
	if len(s.Spacing) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range s.Spacing {
		sum += d
	}
	return sum / time.Duration(len(s.Spacing))
}

// Loop is a single-use pose polling loop.
type Loop struct {
	frames   Frames
	cfg      Config
	reporter Reporter
	logger   *slog.Logger
	now      func() time.Time

	state atomic.Int32
	ran   atomic.Bool
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the loop's logger.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// WithClock replaces the wall clock used for sample timestamps and stats.
func WithClock(now func() time.Time) Option {
	return func(lp *Loop) {
		if now != nil {
			lp.now = now
		}
	}
}

// New creates a loop over frames. The loop does not own frames; releasing
// the Context stays with the caller (see client.With).
func New(frames Frames, cfg Config, reporter Reporter, opts ...Option) (*Loop, error) {
	if frames == nil {
		return nil, errors.New("frames is required")
	}
	if reporter == nil {
		return nil, errors.New("reporter is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid loop config: %w", err)
	}
	if cfg.Mode == ModeUnsynchronized && cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}

	l := &Loop{
		frames:   frames,
		cfg:      cfg,
		reporter: reporter,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Config returns the effective configuration.
func (l *Loop) Config() Config {
	return l.cfg
}

// State returns the current lifecycle state. Safe to call from any goroutine.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Run polls until the termination predicate holds.
//
// Reaching Iterations or Duration returns a nil error. Cancellation of ctx
// returns ctx.Err(). A failed frame operation stops the run and is returned.
// Reporter and flush failures are logged and counted, never returned. Stats
// are valid in every case.
func (l *Loop) Run(ctx context.Context) (stats Stats, err error) {
	if !l.ran.CompareAndSwap(false, true) {
		return Stats{}, ErrAlreadyRun
	}

	parent := ctx
	if l.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Duration)
		defer cancel()
	}

	l.state.Store(int32(StatePolling))
	stats.Started = l.now()
	l.logger.Info("polling started",
		"mode", l.cfg.Mode.String(),
		"iterations", l.cfg.Iterations,
		"interval", l.cfg.Interval,
	)

	defer func() {
		if f, ok := l.reporter.(Flusher); ok {
			if flushErr := f.Flush(context.WithoutCancel(ctx)); flushErr != nil {
				stats.ReportErrors++
				l.logger.Error("flush reporter failed", "error", flushErr)
			}
		}
		stats.Finished = l.now()
		l.state.Store(int32(StateDone))
		l.logger.Info("polling done",
			"iterations", stats.Iterations,
			"poses", stats.Poses,
			"misses", stats.Misses,
			"report_errors", stats.ReportErrors,
			"elapsed", stats.Elapsed(),
		)
	}()

	var last time.Time
	for i := 1; l.cfg.Iterations == 0 || i <= l.cfg.Iterations; i++ {
		if ctx.Err() != nil {
			return stats, l.stopReason(parent, ctx)
		}

		start := l.now()
		if !last.IsZero() {
			stats.Spacing = append(stats.Spacing, start.Sub(last))
		}
		last = start

		var iterErr error
		switch l.cfg.Mode {
		case ModeFrameBracketed:
			iterErr = l.bracketed(ctx, i, &stats)
		default:
			iterErr = l.unsynchronized(ctx, i, &stats)
		}
		if iterErr != nil {
			if ctx.Err() != nil && errors.Is(iterErr, ctx.Err()) {
				return stats, l.stopReason(parent, ctx)
			}
			return stats, fmt.Errorf("iteration %d: %w", i, iterErr)
		}
	}
	return stats, nil
}

// stopReason maps a done context to the run's result: the loop's own
// duration bound is a normal end, anything else is the parent's error.
func (l *Loop) stopReason(parent, ctx context.Context) error {
	if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil
	}
	return parent.Err()
}

func (l *Loop) unsynchronized(ctx context.Context, i int, stats *Stats) error {
	l.query(ctx, i, stats)
	return sleep(ctx, l.cfg.Interval)
}

func (l *Loop) bracketed(ctx context.Context, i int, stats *Stats) error {
	if err := l.frames.BeginFrame(); err != nil {
		return err
	}
	if err := l.frames.EndFrame(); err != nil {
		return err
	}
	l.query(ctx, i, stats)
	return l.frames.WaitFrame(ctx)
}

// query performs the pose query and report step of one iteration. The report
// step is observational: its failures are logged and counted.
func (l *Loop) query(ctx context.Context, i int, stats *Stats) {
	ok, pose := l.frames.GetHeadPose()
	s := Sample{
		Iteration: i,
		Mode:      l.cfg.Mode,
		Valid:     ok,
		Pose:      pose,
		SampledAt: l.now(),
	}
	if fs, has := l.frames.(frameStater); has {
		state := fs.FrameState()
		s.Frame = state.Frame
		s.PredictedDisplayTime = state.PredictedDisplayTime
	}

	stats.Iterations++
	if ok {
		stats.Poses++
	} else {
		stats.Misses++
	}

	err := l.reporter.Report(ctx, s)
	switch {
	case err == nil:
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		// Cancelled mid-report; the run loop reports the stop.
	default:
		stats.ReportErrors++
		l.logger.Warn("report failed", "iteration", i, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
