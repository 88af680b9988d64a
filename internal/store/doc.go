// Package store provides SQLite-backed run history for msgharness.
//
// Each run is recorded once with its tests and findings, so scripts can ask
// whether the last run passed or how a single test fared over time without
// parsing console output.
//
// # Ordering
//
// Runs are ordered by their insertion sequence, never by timestamps, so a
// clock change between runs cannot reorder history. Ties inside a run are
// broken by test index and finding order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
