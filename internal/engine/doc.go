// Package engine implements the rxnenum enumeration engine.
//
// The engine walks the combinatorial space formed by one reagent pool per
// reactant role. It knows nothing about chemistry: it sees only the pool
// sizes and produces positions, one index per role.
//
// ARCHITECTURE:
//
// Strategy:
// A Strategy defines the order of the walk: the initial position, the
// successor of a position, and (when it can) random access by offset. The
// set of strategies is closed and selected by Spec.Kind:
//   - CartesianProduct: every combination, mixed-radix order (bijective)
//   - RandomSample: seeded uniform draws, unbounded, random access by draw index
//   - Filtered: CartesianProduct order restricted by a position predicate
//
// Strategies are immutable values. They hold configuration only; the walk
// state lives in the Cursor.
//
// Cursor:
// A Cursor owns the mutable walk state: current position, step (the index
// of the current position in the strategy's sequence) and the exhaustion
// flag. Cursors are single-goroutine values. Clone produces an independent
// copy that shares only the immutable strategy.
//
// State blobs:
// MarshalState freezes a cursor into a versioned canonical JSON envelope with
// a domain-separated checksum. RestoreState validates format, version,
// checksum, strategy configuration and pool sizes before touching the cursor.
//
// ROLE ORDER:
//
// The default Order is LastFastest: the last role is the fastest varying
// digit, so with sizes [2,3] the walk is [0,0] [0,1] [0,2] [1,0] ...
// FirstFastest flips it. The order is part of the serialized state.
//
// PARALLELISM:
//
// The engine never schedules work. Partition splits a flat offset range into
// contiguous disjoint ranges; callers give each worker its own cursor Clone
// positioned with Seek.
package engine
