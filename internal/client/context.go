package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/headpose/internal/xr"
)

// ErrAlreadyReleased is returned by Close on a Context that was already closed.
var ErrAlreadyReleased = &xr.Error{Code: xr.ErrCodeReleased, Op: "close", Message: "context already released"}

// Context is an exclusively owned handle to one XR session.
//
// A Context is not safe for concurrent use. It has one owner for its lifetime:
// the goroutine driving the poll loop.
type Context struct {
	app     xr.AppInfo
	session xr.Session
	logger  *slog.Logger

	frame        FrameState
	phase        phase
	shouldRender bool
	onState      func(StateChange)

	staleQueries   int
	unpairedBegins int
	released       bool
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for hazard warnings and debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStateChangeHandler registers fn to receive rendering start/stop changes
// observed in WaitFrame.
func WithStateChangeHandler(fn func(StateChange)) Option {
	return func(c *Context) {
		c.onState = fn
	}
}

// Create validates the application identity and opens a session with rt.
//
// Every failure is an init error (xr.IsInitError reports true). The name is
// NFC-normalized before it reaches the runtime.
func Create(ctx context.Context, rt xr.Runtime, name string, version int, opts ...Option) (*Context, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return nil, xr.NewInitError("application name is required", nil)
	}
	if version < 0 {
		return nil, xr.NewInitError(fmt.Sprintf("application version must be non-negative, got %d", version), nil)
	}
	if rt == nil {
		return nil, xr.NewInitError("no runtime available", nil)
	}

	c := &Context{
		app:    xr.AppInfo{Name: name, Version: version},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	session, err := rt.OpenSession(ctx, c.app)
	if err != nil {
		if xr.IsInitError(err) {
			return nil, err
		}
		return nil, xr.NewInitError("runtime rejected session", err)
	}
	c.session = session

	c.logger.Debug("context created", "app", name, "version", version)
	return c, nil
}

// App returns the application identity the session was opened with.
func (c *Context) App() xr.AppInfo {
	return c.app
}

// FrameState returns a copy of the cached frame timing.
func (c *Context) FrameState() FrameState {
	return c.frame
}

// StaleQueries counts GetHeadPose calls made outside the window between
// EndFrame and the next BeginFrame.
func (c *Context) StaleQueries() int {
	return c.staleQueries
}

// UnpairedBegins counts BeginFrame calls made while a frame was already begun.
func (c *Context) UnpairedBegins() int {
	return c.unpairedBegins
}

// Released reports whether Close has been called.
func (c *Context) Released() bool {
	return c.released
}

// BeginFrame signals the start of a tracking/render tick.
//
// Calling it again before EndFrame leaves the prediction stale for later pose
// queries. That is logged and counted but not refused.
func (c *Context) BeginFrame() error {
	if err := c.checkOpen("begin_frame"); err != nil {
		return err
	}
	if c.phase == phaseBegun {
		c.unpairedBegins++
		c.logger.Warn("begin_frame without matching end_frame", "frame", c.frame.Frame)
	}
	if err := c.session.BeginFrame(); err != nil {
		return xr.NewDisconnectedError("begin_frame", err)
	}
	c.frame.LastBeginTime = c.session.Now()
	c.phase = phaseBegun
	return nil
}

// EndFrame signals the end of the tick and refreshes the predicted display
// time used by GetHeadPose.
func (c *Context) EndFrame() error {
	if err := c.checkOpen("end_frame"); err != nil {
		return err
	}
	if c.phase != phaseBegun {
		c.logger.Warn("end_frame without begin_frame", "frame", c.frame.Frame, "phase", c.phase.String())
	}
	timing, err := c.session.EndFrame()
	if err != nil {
		return xr.NewDisconnectedError("end_frame", err)
	}
	c.frame.Frame++
	c.frame.LastEndTime = c.session.Now()
	c.frame.PredictedDisplayTime = timing.PredictedDisplayTime
	if timing.PredictedDisplayPeriod > 0 {
		c.frame.PredictedDisplayPeriod = timing.PredictedDisplayPeriod
	}
	c.phase = phaseEnded
	return nil
}

// WaitFrame blocks until the runtime admits the next tick or ctx is done.
func (c *Context) WaitFrame(ctx context.Context) error {
	if err := c.checkOpen("wait_frame"); err != nil {
		return err
	}
	w, err := c.session.WaitFrame(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		return xr.NewDisconnectedError("wait_frame", err)
	}
	if w.PredictedDisplayPeriod > 0 {
		c.frame.PredictedDisplayPeriod = w.PredictedDisplayPeriod
	}
	c.updateShouldRender(w.ShouldRender)
	c.phase = phaseWaited
	return nil
}

func (c *Context) updateShouldRender(shouldRender bool) {
	if shouldRender == c.shouldRender {
		return
	}
	c.shouldRender = shouldRender
	change := RenderingStop
	if shouldRender {
		change = RenderingStart
	}
	c.logger.Debug("state change", "event", change.String())
	if c.onState != nil {
		c.onState(change)
	}
}

// GetHeadPose returns the head pose the runtime currently predicts.
//
// It never blocks and never fails: (false, xr.Pose{}) means no tracking data
// is available. The pose is only fresh between EndFrame and the next
// BeginFrame; other calls are counted as stale. A released Context reports
// no pose.
func (c *Context) GetHeadPose() (bool, xr.Pose) {
	if c.released {
		return false, xr.Pose{}
	}
	if c.phase == phaseIdle || c.phase == phaseBegun {
		c.staleQueries++
	}

	// Before the first EndFrame there is no prediction to query at.
	at := c.frame.PredictedDisplayTime
	if c.frame.Frame == 0 {
		at = c.session.Now()
	}
	pose, ok := c.session.LocateHead(at)
	if !ok {
		c.logger.Debug("could not get valid head pose", "at", at)
		return false, xr.Pose{}
	}
	return true, pose
}

// Close releases the session. A second Close returns ErrAlreadyReleased.
func (c *Context) Close() error {
	if c.released {
		return ErrAlreadyReleased
	}
	c.released = true
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	c.logger.Debug("context released", "app", c.app.Name, "frames", c.frame.Frame)
	return nil
}

func (c *Context) checkOpen(op string) error {
	if c.released {
		return &xr.Error{Code: xr.ErrCodeReleased, Op: op, Message: "context used after release"}
	}
	return nil
}

// With creates a Context, passes it to fn and releases it when fn returns,
// including when fn fails or panics. Errors from fn take precedence over the
// release error.
func With(ctx context.Context, rt xr.Runtime, name string, version int, fn func(*Context) error, opts ...Option) (err error) {
	c, err := Create(ctx, rt, name, version, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if c.released {
			return
		}
		if closeErr := c.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(c)
}
