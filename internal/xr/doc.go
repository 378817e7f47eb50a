// Package xr defines the contract between headpose and an XR runtime.
//
// The runtime itself (device enumeration, tracking fusion, pose prediction,
// compositor submission) is an external collaborator. headpose consumes it
// through two interfaces:
//
//   - Runtime opens sessions for an application name and version.
//   - Session exposes the frame lifecycle (WaitFrame, BeginFrame, EndFrame)
//     and head-space location at a runtime timestamp.
//
// All runtime timestamps are time.Duration values on the runtime's own
// monotonic clock, measured from session start. They are never compared with
// wall-clock time.
//
// Poses are plain values. Formatting lives in free functions (FormatPose,
// FormatMatrix) so that no pose carries display behaviour of its own.
package xr
