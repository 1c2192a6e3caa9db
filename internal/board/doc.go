// Package board defines the core domain types for a TaskTickr board:
// tasks, the three-column layout, and the column transition rules.
//
// A board is a small fixed set of ordered columns (todo, today, done).
// A task's logical state is fully determined by its column and its
// completion timestamp: a task is completed if and only if it sits in
// the done column. The package classifies column moves so callers can
// tell a pure metadata move (todo <-> today) apart from one that
// crosses the done boundary and therefore carries a price effect.
//
// # Main Types
//
//   - [Task]: a single board entry with identity, title, column, and
//     completion bookkeeping
//   - [Column]: enum of the three board columns
//   - [Transition]: classification of a column move
//   - [Snapshot]: per-column projection of a set of tasks
//
// The package holds no mutable state and performs no I/O; it only
// describes and classifies. Applying transitions is the reconciler's
// job.
package board
