// Package client is the typed façade over an XR runtime session.
//
// A Context owns exactly one xr.Session and the FrameState that the runtime
// would otherwise keep implicitly. FrameState is mutated only by BeginFrame,
// EndFrame and WaitFrame, and read only by GetHeadPose, so the staleness
// hazard of querying a pose outside a frame bracket is visible in the data:
//
//	begin -> end -> GetHeadPose -> wait -> begin ...
//
// GetHeadPose called after EndFrame and before the next BeginFrame queries
// the pose at the freshly predicted display time. Anywhere else it reads an
// old prediction (or the runtime's current time when no frame has run yet)
// and the call is counted in StaleQueries. Nothing is refused: the ordering
// rules are a calling contract, not an enforced protocol.
//
// Use With for scoped acquisition; it releases the Context on every exit path.
package client
