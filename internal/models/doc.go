// Package models defines domain entities and persistence interfaces for the gmx client.
//
// The package contains two categories of types:
//
// 1. Protocol values: what the dispatcher and reconciler pass around
//   - [TrackRecord] : one song's metadata snapshot keyed by field name
//   - [Playlist] : server id, name and a unique, unordered set of track ids
//   - [PendingMutation] : a requested field-level delta awaiting verification
//   - [CallResult] : Success(payload) or Failure(kind, detail), never both
//   - [Failure] : typed error whose [FailureKind] unwraps to a shared sentinel
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [RunRecord] : one workflow sequence execution and its [StepRecord] list
//   - [SnapshotRecord] : a before/predicted/after copy of a track record
//   - [Leftover] : a playlist or track created by a run that halted before cleanup
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
