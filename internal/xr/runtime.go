package xr

import (
	"context"
	"time"
)

// Runtime opens sessions with an XR runtime.
//
// OpenSession fails when no runtime is reachable or the runtime rejects the
// application. Callers wrap that failure as an init error.
type Runtime interface {
	OpenSession(ctx context.Context, app AppInfo) (Session, error)
}

// AppInfo identifies the application to the runtime.
type AppInfo struct {
	Name    string
	Version int
}

// FrameWait is the runtime's answer to a WaitFrame call.
type FrameWait struct {
	// ShouldRender reports whether the runtime wants frames rendered.
	// Flips produce rendering start/stop state changes.
	ShouldRender bool

	// PredictedDisplayPeriod is the runtime's current frame period.
	PredictedDisplayPeriod time.Duration
}

// FrameTiming is returned by EndFrame.
type FrameTiming struct {
	// PredictedDisplayTime is the instant poses should be predicted for
	// until the next EndFrame.
	PredictedDisplayTime time.Duration

	// PredictedDisplayPeriod is the frame period at the time of EndFrame.
	PredictedDisplayPeriod time.Duration
}

// Session is one open session with the runtime.
//
// Frame operations are synchronous. A runtime that loses its session returns
// an error from them; head location never errors and reports absence of
// tracking data through its boolean result.
type Session interface {
	// Now returns the runtime's current monotonic time.
	Now() time.Duration

	// WaitFrame blocks until the runtime admits the next frame.
	WaitFrame(ctx context.Context) (FrameWait, error)

	// BeginFrame marks the start of a frame.
	BeginFrame() error

	// EndFrame marks the end of a frame and returns the refreshed prediction.
	EndFrame() (FrameTiming, error)

	// LocateHead returns the head pose predicted for instant at.
	// ok is false when the device has not been located.
	LocateHead(at time.Duration) (pose Pose, ok bool)

	// Close ends the session.
	Close() error
}
