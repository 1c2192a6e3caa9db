// Package store defines the persistence contract the sync engine depends
// on, and provides two implementations of it: a SQLite-backed store for
// real use and an in-memory store for tests.
//
// The contract is deliberately narrow: task CRUD, a single price row, an
// append-only ledger, and a change feed subscription. The one correctness
// requirement implementations must honor is the conditional price write.
// The price read-modify-write performed on task completion is not atomic
// by itself, so [Store.WritePrice] accepts the value the caller read; the
// write succeeds only if the row still holds that value, and returns a
// ConflictError otherwise. Without that check, concurrent completions
// from two observers can silently lose a price update.
//
// All calls carry an implicit timeout owned by the store. A timed-out
// write surfaces as a TransportError; the caller treats it as a failure
// and rolls back, then reconciles whatever the eventual feed event
// reports.
package store
