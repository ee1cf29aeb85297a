// Package repositories implements SQLite persistence for run history.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [RunRepository] : Sequence runs and their step outcomes
//   - [SnapshotRepository] : Track metadata captured before, predicted for, and after a change
//   - [LeftoverRepository] : Playlists and tracks a halted run did not delete
//   - [RunRecorder] : Adapter the sequencer uses to persist outcomes and snapshots
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
