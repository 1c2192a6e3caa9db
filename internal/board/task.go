package board

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Task is a single entry on the board.
type Task struct {
	ID          uuid.UUID
	Title       string
	Column      Column
	CreatedAt   time.Time
	CompletedAt *time.Time // Set while the task sits in the done column

	// LastPriceDelta is the exact amount the shared price moved when this
	// task was last completed. It is recorded on completion and cleared on
	// uncompletion, so an uncomplete always reverses the recorded amount
	// rather than recomputing a percentage against a possibly different
	// current price.
	LastPriceDelta *decimal.Decimal
}

// Completed reports whether the task is in the done column.
// Column membership and completion are the same fact.
func (t Task) Completed() bool {
	return t.Column == ColumnDone
}

// Equal reports value equality between two tasks, including the optional
// completion timestamp and recorded price delta. The reconciler uses this
// to recognize change-feed echoes of its own optimistic mutations.
func (t Task) Equal(other Task) bool {
	if t.ID != other.ID || t.Title != other.Title || t.Column != other.Column {
		return false
	}
	if !t.CreatedAt.Equal(other.CreatedAt) {
		return false
	}
	if (t.CompletedAt == nil) != (other.CompletedAt == nil) {
		return false
	}
	if t.CompletedAt != nil && !t.CompletedAt.Equal(*other.CompletedAt) {
		return false
	}
	if (t.LastPriceDelta == nil) != (other.LastPriceDelta == nil) {
		return false
	}
	if t.LastPriceDelta != nil && !t.LastPriceDelta.Equal(*other.LastPriceDelta) {
		return false
	}
	return true
}

// Clone returns a deep copy of the task. Pointer fields are duplicated so
// mutating the copy never aliases the original.
func (t Task) Clone() Task {
	c := t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.LastPriceDelta != nil {
		d := *t.LastPriceDelta
		c.LastPriceDelta = &d
	}
	return c
}

// Snapshot is a per-column projection of a set of tasks, each column
// ordered newest-first by creation time.
type Snapshot struct {
	Todo  []Task
	Today []Task
	Done  []Task
}

// BuildSnapshot partitions tasks into columns, sorting each column by
// creation time descending. Input order does not matter.
func BuildSnapshot(tasks []Task) Snapshot {
	var snap Snapshot
	for _, t := range tasks {
		switch t.Column {
		case ColumnToday:
			snap.Today = append(snap.Today, t)
		case ColumnDone:
			snap.Done = append(snap.Done, t)
		default:
			snap.Todo = append(snap.Todo, t)
		}
	}
	for _, col := range [][]Task{snap.Todo, snap.Today, snap.Done} {
		sort.SliceStable(col, func(i, j int) bool {
			return col[i].CreatedAt.After(col[j].CreatedAt)
		})
	}
	return snap
}

// Total returns the number of tasks across all columns.
func (s Snapshot) Total() int {
	return len(s.Todo) + len(s.Today) + len(s.Done)
}
