// Package store provides the SQLite-backed local store for one user's
// partition: the append-only event log plus the tables materialized from
// it.
//
// The log is the only source of truth. Tables are a strict left-fold over
// the event sequence: Commit appends and materializes in one transaction,
// ApplyRemote runs pulled events through the identical materialization
// path, and Replay rebuilds every table from an empty state. Replaying the
// same log twice yields identical tables.
//
// # Ordering
//
// Confirmed events (those the authority has assigned a sequence position)
// fold first, in authority order. Unconfirmed local events fold after
// them, in local commit order. When a pull introduces a foreign event
// while unconfirmed local events exist, the store rebuilds the tables by
// full replay rather than patching incrementally - the deterministic fold
// is the rebase.
//
// # Database configuration
//
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout
//   - foreign_keys ON
//   - single connection (SQLite has one writer)
//
// Schema changes are applied via PRAGMA user_version migrations; Open is
// idempotent.
package store
