// Package store provides SQLite-backed durable storage for enumeration runs.
//
// The store keeps three tables:
//   - Runs: one row per run, with the serialized library it started from
//     and the step range it owns
//   - Checkpoints: cursor state blobs recorded while a run progresses
//   - Results: the outcome of every enumeration step
//
// # Patterns
//
// Idempotent writes:
//   - checkpoints are UNIQUE(run_id, step), results are UNIQUE(run_id, step)
//   - re-running a step after a crash rewrites nothing
//
// Deterministic query results:
//   - runs are ordered by seq ASC, id ASC COLLATE BINARY
//   - checkpoints and results are ordered by step ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Positions and product groups are stored as RFC 8785 canonical JSON via
// internal/ir.
package store
