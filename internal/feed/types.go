package feed

import (
	"time"

	"github.com/charlieadamsdev/tasktickr/internal/board"
	"github.com/charlieadamsdev/tasktickr/internal/ledger"
)

// EventType identifies the kind of store mutation an event describes.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Table identifies which record stream an event belongs to.
type Table string

const (
	TableTasks  Table = "tasks"
	TableLedger Table = "ledger"
)

// Event is one confirmed mutation delivered on the change feed. Exactly
// one of Task or Entry is set, matching Table. For task deletions Task
// carries the last known record so subscribers can identify it.
type Event struct {
	Type  EventType
	Table Table
	At    time.Time
	Task  *board.Task
	Entry *ledger.Entry
}

// NewTaskEvent creates a tasks-table event for the given record.
func NewTaskEvent(typ EventType, task board.Task) Event {
	t := task.Clone()
	return Event{
		Type:  typ,
		Table: TableTasks,
		At:    time.Now(),
		Task:  &t,
	}
}

// NewLedgerEvent creates a ledger-table insert event. Ledger entries are
// append-only, so insert is the only type emitted for them.
func NewLedgerEvent(entry ledger.Entry) Event {
	e := entry
	return Event{
		Type:  EventInsert,
		Table: TableLedger,
		At:    time.Now(),
		Entry: &e,
	}
}
