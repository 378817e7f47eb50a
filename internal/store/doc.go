// Package store provides SQLite-backed recording of poll runs.
//
// Two tables:
//   - runs: one row per loop run (application, mode, bounds, outcome, counters)
//   - samples: one row per report step, keyed by (run_id, iteration)
//
// # Ordering
//
// Samples are always read ORDER BY iteration ASC. Runs are listed newest
// first, ties broken by id, so history output is stable.
//
// # Database Configuration
//
//   - WAL mode: history can be read while a run records
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: samples must reference an existing run
//
// Writes are idempotent: re-recording a run id or a (run_id, iteration)
// pair is silently ignored.
package store
