package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/charlieadamsdev/tasktickr/internal/board"
	"github.com/charlieadamsdev/tasktickr/internal/feed"
	"github.com/charlieadamsdev/tasktickr/internal/ledger"
)

// Price is the single shared price row.
type Price struct {
	ID    uuid.UUID
	Value decimal.Decimal
}

// TaskFields describes a partial task update. Nil pointer fields are left
// untouched. CompletedAt and LastPriceDelta are nullable columns, so each
// carries a Set flag: with the flag true and the pointer nil, the column
// is cleared.
type TaskFields struct {
	Title  *string
	Column *board.Column

	SetCompletedAt bool
	CompletedAt    *time.Time

	SetLastPriceDelta bool
	LastPriceDelta    *decimal.Decimal
}

// Subscription is one observer's long-lived view of the change feed.
type Subscription interface {
	// Events streams confirmed mutations in store emission order.
	Events() <-chan feed.Event
	// Resyncs signals that continuity was lost and the observer must
	// refetch full state instead of trusting the event stream.
	Resyncs() <-chan struct{}
	// Close tears down the subscription and closes both channels.
	Close()
}

// Store is the narrow command/query interface the engine persists through.
// Implementations own call timeouts and must map their failures onto the
// taxonomy in internal/errors: NotFoundError for missing rows,
// ConflictError for a failed conditional price write, TransportError for
// timeouts and connectivity loss.
type Store interface {
	// CreateTask inserts a new task with the given title, defaulting to
	// the todo column with no completion state, and returns the stored
	// record.
	CreateTask(ctx context.Context, title string) (board.Task, error)

	// UpdateTask applies fields to the task and returns the updated record.
	UpdateTask(ctx context.Context, id uuid.UUID, fields TaskFields) (board.Task, error)

	// DeleteTask removes the task.
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// ListTasks returns all tasks ordered by creation time descending.
	ListTasks(ctx context.Context) ([]board.Task, error)

	// ReadPrice returns the current price row.
	ReadPrice(ctx context.Context) (Price, error)

	// WritePrice sets the price row's value. If expected is non-nil the
	// write is conditional: it succeeds only if the row still holds the
	// expected value, and returns a ConflictError otherwise.
	WritePrice(ctx context.Context, id uuid.UUID, value decimal.Decimal, expected *decimal.Decimal) error

	// AppendLedgerEntry appends one immutable ledger record.
	AppendLedgerEntry(ctx context.Context, entry ledger.Entry) error

	// QueryLedger returns ledger entries at or after since, ascending by
	// timestamp. The result is finite and the query restartable per call.
	QueryLedger(ctx context.Context, since time.Time) ([]ledger.Entry, error)

	// Subscribe opens a change feed over the given tables (all tables if
	// none are named). The subscription must be closed on teardown.
	Subscribe(tables ...feed.Table) (Subscription, error)

	// Close releases the store and tears down all subscriptions.
	Close() error
}
