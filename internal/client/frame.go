package client

import "time"

// FrameState is the explicit frame timing cached inside a Context.
// All times are on the runtime's monotonic clock.
type FrameState struct {
	// Frame counts completed EndFrame calls.
	Frame uint64

	LastBeginTime time.Duration
	LastEndTime   time.Duration

	// PredictedDisplayTime is the instant GetHeadPose predicts for.
	// Meaningful only once Frame is non-zero.
	PredictedDisplayTime time.Duration

	// PredictedDisplayPeriod is the runtime's latest frame period.
	PredictedDisplayPeriod time.Duration
}

// phase tracks where the Context is inside a FrameCycle.
type phase int

const (
	phaseIdle   phase = iota // no frame has started yet
	phaseBegun               // BeginFrame called, EndFrame pending
	phaseEnded               // EndFrame called; pose queries are fresh
	phaseWaited              // WaitFrame returned; next call should be BeginFrame
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseBegun:
		return "begun"
	case phaseEnded:
		return "ended"
	case phaseWaited:
		return "waited"
	default:
		return "unknown"
	}
}

// StateChange reports a change in whether the runtime wants frames rendered.
type StateChange int

const (
	RenderingStart StateChange = iota + 1
	RenderingStop
)

func (s StateChange) String() string {
	switch s {
	case RenderingStart:
		return "rendering_start"
	case RenderingStop:
		return "rendering_stop"
	default:
		return "unknown"
	}
}
