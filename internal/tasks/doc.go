// Package tasks runs ordered, stateful workflows against the media library with real-time progress reporting.
//
// # Sequences
//
// A [Sequence] is a list of [Step] values ordered by their identifiers (1 < 2 < 2a < 3 < 10). Two steps claiming the
// same position are rejected by [NewSequence] before anything runs.
//
// [Sequencer.Run] executes the steps strictly in order. Every step receives the same [State], so a playlist id
// created by step 1 is visible to step 2. The first failure halts the run:
//   - the failing step is the last entry of [Outcome.Steps]
//   - the remaining steps are listed in [Outcome.Skipped]
//   - nothing is rolled back; entities the run created and never removed are reported as [Outcome.Leftovers]
//
// [Sequencer.RunAll] runs independent sequences concurrently. Starts are paced with a token bucket and a failing
// sequence never stops the others.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Persistence
//
// The optional [RunRecorder] receives every outcome and supplies a snapshot store for each run.
// Recording errors are logged and never change an outcome.
//
// # Scenarios
//
// [Scenarios] lists the built-in verification workflows: playlist lifecycle, upload then delete, metadata change and
// revert, search and stream URL resolution. Each is built from an [Env] holding the dispatcher and reconciler.
package tasks
