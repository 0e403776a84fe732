// Package store is the SQLite ledger of bookings created on the target
// environment.
//
// Teardown deletes bookings in-process, but a run can die between create and
// delete (killed CI job, panic in the browser driver, lost network). The
// ledger makes those leftovers recoverable: every created id is written
// before the scenario asserts anything, and marked released once deleted.
// `staycheck sweep` deletes whatever is still pending for a base URL.
//
// # Tables
//
//   - runs: one row per harness run (UUIDv7 id, base URL, suite name)
//   - created_bookings: one row per created booking id, with the scenario,
//     agent, room and dates that produced it
//
// Ordering uses the seq column, never timestamps.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
