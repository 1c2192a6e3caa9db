// Package errors provides centralized error definitions and error handling
// utilities for the TaskTickr codebase. It defines the store-boundary error
// taxonomy, error constructors with context wrapping, and classification
// helpers used by the reconciler to decide between retry, rollback, and
// resync.
//
// # Error Types
//
// Semantic errors represent the conditions the engine must react to:
//   - NotFoundError: a referenced task or price row no longer exists;
//     local state is stale, drop it or resync
//   - ConflictError: a concurrent write collided on the price row; retry
//     the read-modify-write with a fresh read, bounded
//   - TransportError: the change feed disconnected or a store call timed
//     out; trigger a full resync, not fatal
//   - MissingDeltaError: an uncompletion found no recorded price delta;
//     log and proceed with zero price effect
//   - ValidationError: bad input rejected before any write
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewNotFoundError("task", id.String())
//	err := errors.NewConflictError("price write lost the race", cause)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrConflict) { ... }
//
//	var nf *errors.NotFoundError
//	if errors.As(err, &nf) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrNotFound indicates a referenced task or price row no longer exists.
	ErrNotFound = New("record not found")
	// ErrConflict indicates a concurrent write collision on the price row.
	ErrConflict = New("concurrent write conflict")
	// ErrTransport indicates a feed disconnect or store call timeout.
	ErrTransport = New("transport failure")
	// ErrMissingDelta indicates an uncompletion with no recorded price delta.
	ErrMissingDelta = New("no recorded price delta")
	// ErrValidation indicates input rejected before any write.
	ErrValidation = New("validation failed")
	// ErrStoreClosed indicates an operation against a closed store.
	ErrStoreClosed = New("store is closed")
	// ErrEngineStopped indicates a command submitted after engine shutdown.
	ErrEngineStopped = New("engine is stopped")
)

// -----------------------------------------------------------------------------
// NotFoundError
// -----------------------------------------------------------------------------

// NotFoundError indicates that a referenced record does not exist in the
// store. The reconciler treats it as stale local state.
type NotFoundError struct {
	Kind string // "task" or "price"
	ID   string
}

// NewNotFoundError creates a NotFoundError for the given record kind and id.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, ErrNotFound)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// -----------------------------------------------------------------------------
// ConflictError
// -----------------------------------------------------------------------------

// ConflictError indicates that a conditional price write found a value other
// than the one it expected. The operation that produced it should re-read
// the price and retry, up to a bounded count.
type ConflictError struct {
	message string
	cause   error
}

// NewConflictError creates a ConflictError.
func NewConflictError(message string, cause error) *ConflictError {
	return &ConflictError{message: message, cause: cause}
}

func (e *ConflictError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("conflict: %s: %v", e.message, e.cause)
	}
	return fmt.Sprintf("conflict: %s", e.message)
}

func (e *ConflictError) Unwrap() error { return e.cause }

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict || (e.cause != nil && errors.Is(e.cause, target))
}

// -----------------------------------------------------------------------------
// TransportError
// -----------------------------------------------------------------------------

// TransportError indicates a feed disconnect, timed-out store call, or other
// transient transport failure. It always warrants a resync, never a crash.
type TransportError struct {
	Op    string // Operation that failed, e.g. "subscribe", "write_price"
	cause error
}

// NewTransportError creates a TransportError for the given operation.
func NewTransportError(op string, cause error) *TransportError {
	return &TransportError{Op: op, cause: cause}
}

func (e *TransportError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("transport failure during %s: %v", e.Op, e.cause)
	}
	return fmt.Sprintf("transport failure during %s", e.Op)
}

func (e *TransportError) Unwrap() error { return e.cause }

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport || (e.cause != nil && errors.Is(e.cause, target))
}

// -----------------------------------------------------------------------------
// MissingDeltaError
// -----------------------------------------------------------------------------

// MissingDeltaError indicates an uncompletion found no recorded price delta
// on the task. If the invariants hold this never happens; when it does, the
// caller logs it and continues with zero price effect rather than failing
// the operation.
type MissingDeltaError struct {
	TaskID string
}

// NewMissingDeltaError creates a MissingDeltaError for the given task.
func NewMissingDeltaError(taskID string) *MissingDeltaError {
	return &MissingDeltaError{TaskID: taskID}
}

func (e *MissingDeltaError) Error() string {
	return fmt.Sprintf("task %s: %v", e.TaskID, ErrMissingDelta)
}

// Is reports whether target is ErrMissingDelta.
func (e *MissingDeltaError) Is(target error) bool {
	return target == ErrMissingDelta
}

// -----------------------------------------------------------------------------
// ValidationError
// -----------------------------------------------------------------------------

// ValidationError indicates input rejected before any write was attempted.
// It is surfaced synchronously to the caller.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable reports whether the operation that produced err may succeed if
// attempted again. Conflicts and transport failures are transient; missing
// records and validation failures are not.
func IsRetryable(err error) bool {
	return Is(err, ErrConflict) || Is(err, ErrTransport)
}

// IsStale reports whether err means local state references a record the
// store no longer has. The reconciler drops the record or resyncs.
func IsStale(err error) bool {
	return Is(err, ErrNotFound)
}

// IsUserFacing reports whether err is safe and useful to surface to the
// user directly. Validation failures are; internal store failures are
// reported generically as a failed operation.
func IsUserFacing(err error) bool {
	return Is(err, ErrValidation) || Is(err, ErrNotFound)
}
