// Package reconcile implements the task/price synchronization engine: the
// single point of mutation for one observer's board state.
//
// The engine merges two event sources. Direct user commands (add, move,
// delete, rename) are applied optimistically to local state, then
// submitted to the store; if persistence fails, the optimistic mutation
// is rolled back to the last confirmed state. Change feed events describe
// the authoritative outcome of commands, this observer's own included,
// and replace local state for the named record unconditionally, so echoes
// of just-applied optimistic changes are no-ops by value equality.
//
// Commands and feed events are processed one at a time by a single loop
// goroutine; the engine needs no internal locking beyond what lets
// snapshot readers observe consistent state. Concurrency hazards live
// between observers, at the shared store: the compound completion write
// (task status, then price, then ledger entry) is retried as a unit on a
// price-write conflict, bounded, with a fresh price read per attempt.
// After the bound is exhausted the task status is rolled back and the
// price left untouched; a status flip never stands without its confirmed
// price effect.
package reconcile
