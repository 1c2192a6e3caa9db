// Package ledger owns the price-delta rule for task completion and the
// immutable audit trail it produces.
//
// Completing a task raises the shared price by a percentage of its value
// at the moment of completion (5% by default). The exact amount added is
// recorded on the task, and uncompleting the task later subtracts that
// recorded amount rather than recomputing a percentage against the
// current price. This makes every complete/uncomplete cycle exactly
// reversible up to the committed 2-decimal rounding.
//
// The calculator never mutates task or price state. It returns a [Change]
// describing the intended effect, which the reconciler applies atomically
// through the store.
//
// All arithmetic is decimal. Rounding to 2 places happens only when a new
// price is committed, never on intermediate values. A computed price below
// zero is clamped to zero; the entry's delta still records the unclamped
// intended amount for the audit trail.
package ledger
