package reconcile

import (
	"github.com/charlieadamsdev/tasktickr/internal/feed"
)

// applyEvent reconciles one confirmed change-feed event against local
// state. Feed events are authoritative: for inserts and updates the
// delivered record replaces local state for that id unconditionally,
// last writer wins by feed order, with no field-level merge. An echo of
// this observer's own optimistic mutation is therefore a no-op by value
// equality.
func (e *Engine) applyEvent(ev feed.Event) {
	switch ev.Table {
	case feed.TableTasks:
		if ev.Task == nil {
			return
		}
		switch ev.Type {
		case feed.EventInsert, feed.EventUpdate:
			if existing, ok := e.getTask(ev.Task.ID); ok && existing.Equal(*ev.Task) {
				return
			}
			e.putTask(*ev.Task)
		case feed.EventDelete:
			e.removeTask(ev.Task.ID)
		}
	case feed.TableLedger:
		if ev.Entry == nil {
			return
		}
		// The entry carries the price that resulted from the change;
		// adopting it keeps all observers' price views convergent.
		e.setPrice(ev.Entry.Price)
	}
}
