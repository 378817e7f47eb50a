package mockxr

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/roach88/headpose/internal/xr"
)

// DefaultTick is a 90 Hz frame period.
const DefaultTick = time.Second / 90

// ErrNoRuntime is returned by OpenSession on an unavailable runtime.
var ErrNoRuntime = errors.New("no XR runtime available")

// ErrSessionClosed is returned when a closed session is closed again.
var ErrSessionClosed = errors.New("session already closed")

// Config controls a simulated runtime.
type Config struct {
	// Tick is the frame period WaitFrame paces to. Defaults to DefaultTick.
	Tick time.Duration

	// Source answers head-location queries. Defaults to a static head at
	// standing height (0, 1.6, 0).
	Source PoseSource

	// Unavailable makes every OpenSession fail with ErrNoRuntime.
	Unavailable bool

	// DisconnectAfter drops the session once this many frames have ended.
	// Zero never disconnects.
	DisconnectAfter uint64

	// HiddenWaits is the number of initial WaitFrame calls that report
	// ShouldRender=false, as a runtime does before the session is focused.
	HiddenWaits uint64

	// Recorder receives every call. Defaults to a fresh recorder.
	Recorder *Recorder
}

// Runtime is a simulated xr.Runtime.
type Runtime struct {
	cfg Config

	mu     sync.Mutex
	opened int
	closed int
}

// New creates a simulated runtime.
func New(cfg Config) *Runtime {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Source == nil {
		cfg.Source = Static(xr.NewPose(0, 1.6, 0))
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NewRecorder()
	}
	return &Runtime{cfg: cfg}
}

// Recorder returns the recorder receiving this runtime's calls.
func (r *Runtime) Recorder() *Recorder {
	return r.cfg.Recorder
}

// Tick returns the frame period.
func (r *Runtime) Tick() time.Duration {
	return r.cfg.Tick
}

// Opened returns how many sessions were opened successfully.
func (r *Runtime) Opened() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened
}

// Closed returns how many sessions were closed successfully.
func (r *Runtime) Closed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// OpenSession implements xr.Runtime.
func (r *Runtime) OpenSession(ctx context.Context, app xr.AppInfo) (xr.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.cfg.Unavailable {
		r.cfg.Recorder.record(Call{Op: OpOpen, Err: ErrNoRuntime})
		return nil, ErrNoRuntime
	}

	r.mu.Lock()
	r.opened++
	r.mu.Unlock()

	s := &Session{
		rt:     r,
		app:    app,
		start:  time.Now(),
		ticker: time.NewTicker(r.cfg.Tick),
	}
	r.cfg.Recorder.record(Call{Op: OpOpen})
	return s, nil
}

// Session is a simulated xr.Session. Like the runtime it stands in for, it
// expects a single caller.
type Session struct {
	rt     *Runtime
	app    xr.AppInfo
	start  time.Time
	ticker *time.Ticker

	frame  uint64
	waits  uint64
	closed bool
}

// App returns the application identity the session was opened with.
func (s *Session) App() xr.AppInfo {
	return s.app
}

// Now implements xr.Session.
func (s *Session) Now() time.Duration {
	return time.Since(s.start)
}

func (s *Session) lost() bool {
	if s.closed {
		return true
	}
	n := s.rt.cfg.DisconnectAfter
	return n > 0 && s.frame >= n
}

func (s *Session) record(c Call) {
	c.Frame = s.frame
	if c.At == 0 {
		c.At = s.Now()
	}
	s.rt.cfg.Recorder.record(c)
}

// WaitFrame implements xr.Session. It blocks until the next tick of the
// frame ticker or until ctx is done.
func (s *Session) WaitFrame(ctx context.Context) (xr.FrameWait, error) {
	if s.lost() {
		s.record(Call{Op: OpWaitFrame, Err: xr.ErrSessionLost})
		return xr.FrameWait{}, xr.ErrSessionLost
	}
	select {
	case <-ctx.Done():
		s.record(Call{Op: OpWaitFrame, Err: ctx.Err()})
		return xr.FrameWait{}, ctx.Err()
	case <-s.ticker.C:
	}
	s.waits++
	s.record(Call{Op: OpWaitFrame})
	return xr.FrameWait{
		ShouldRender:           s.waits > s.rt.cfg.HiddenWaits,
		PredictedDisplayPeriod: s.rt.cfg.Tick,
	}, nil
}

// BeginFrame implements xr.Session.
func (s *Session) BeginFrame() error {
	if s.lost() {
		s.record(Call{Op: OpBeginFrame, Err: xr.ErrSessionLost})
		return xr.ErrSessionLost
	}
	s.record(Call{Op: OpBeginFrame})
	return nil
}

// EndFrame implements xr.Session. The predicted display time is one tick
// after the moment the frame ended.
func (s *Session) EndFrame() (xr.FrameTiming, error) {
	if s.lost() {
		s.record(Call{Op: OpEndFrame, Err: xr.ErrSessionLost})
		return xr.FrameTiming{}, xr.ErrSessionLost
	}
	now := s.Now()
	s.record(Call{Op: OpEndFrame, At: now})
	s.frame++
	return xr.FrameTiming{
		PredictedDisplayTime:   now + s.rt.cfg.Tick,
		PredictedDisplayPeriod: s.rt.cfg.Tick,
	}, nil
}

// LocateHead implements xr.Session.
func (s *Session) LocateHead(at time.Duration) (xr.Pose, bool) {
	if s.closed {
		return xr.Pose{}, false
	}
	pose, ok := s.rt.cfg.Source.Locate(at)
	c := Call{Op: OpLocateHead, At: at, Valid: ok}
	if ok {
		c.Pose = pose
	}
	s.record(c)
	return c.Pose, ok
}

// Close implements xr.Session.
func (s *Session) Close() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	s.ticker.Stop()
	s.record(Call{Op: OpClose})

	s.rt.mu.Lock()
	s.rt.closed++
	s.rt.mu.Unlock()
	return nil
}
