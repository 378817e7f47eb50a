// Package loop drives repeated head-pose acquisition.
//
// A Loop moves through three states, Idle -> Polling -> Done, and runs in one
// of two modes chosen at construction:
//
// Unsynchronized mode:
//
//	query pose; report; sleep(interval)
//
// The sleep is the only pacing and does not follow the runtime's frame rate,
// so the loop may sample faster or slower than poses update. Poses lag true
// head motion.
//
// Frame-bracketed mode:
//
//	begin frame; end frame; query pose; report; wait frame
//
// WaitFrame paces the loop to the runtime and keeps the next cycle's
// begin/end ordering correct. The pose query sits between EndFrame and the
// next BeginFrame, where the prediction is fresh.
//
// The loop stops when the iteration count is reached, the optional duration
// elapses, or the context is cancelled; all three are checked between
// iterations and cancellation also interrupts sleeps and frame waits.
//
// A missing pose is reported and counted; it never stops the loop. Neither
// does a failed report, which is logged and counted in Stats.ReportErrors.
// Errors from frame operations do stop it.
package loop
