// Package harness provides conformance testing for pose polling clients.
//
// The harness runs a poll loop against the simulated runtime, records every
// runtime call in order, and checks the recorded trace and run counters
// against the scenario's assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: bracketed_static
//	description: "Bracketed polling reports one pose per frame"
//	app:
//	  name: Pose Test
//	  version: 1
//	mode: bracketed
//	iterations: 3
//	runtime:
//	  tick: 10ms
//	  source: static
//	  position: [0, 1.6, 0]
//	assertions:
//	  - type: report_count
//	    count: 3
//	  - type: frame_order
//	  - type: call_count
//	    op: wait_frame
//	    count: 3
//
// # Assertion Types
//
//   - report_count: exactly count report steps ran
//   - pose_count: exactly count reports carried a pose
//   - miss_count: exactly count reports had no pose
//   - frame_order: every cycle runs begin, end, query, wait in that order
//   - call_count: op was called exactly count times
//   - min_elapsed / max_elapsed: run wall time bound by duration
//   - released: the context was created and released exactly once
//   - init_error: context creation failed
//   - stale_queries: exactly count pose queries fell outside a frame window
//   - run_error: the run failed with an error containing contains
//
// A run that fails without an init_error or run_error assertion fails the
// scenario.
//
// # Deterministic Traces
//
// Trace events carry only the call sequence, operation, frame counter and
// a detail string, never runtime timestamps, so golden snapshots are
// byte-identical across runs as long as the pose source does not depend on
// time.
package harness
