// Package mockxr is a simulated XR runtime.
//
// It paces frames with a fixed tick duration, predicts display time one tick
// ahead at EndFrame, answers head-location queries from a PoseSource and
// records every call so ordering can be checked after a run. Fault injection
// covers the two failures the client contract knows about: no runtime at
// session open, and a session dropped after a number of frames.
//
// The runtime is used by the CLI when no hardware binding is configured, by
// the conformance harness and by package tests.
package mockxr
