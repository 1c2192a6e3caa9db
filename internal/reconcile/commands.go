package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/charlieadamsdev/tasktickr/internal/board"
	"github.com/charlieadamsdev/tasktickr/internal/errors"
	"github.com/charlieadamsdev/tasktickr/internal/ledger"
	"github.com/charlieadamsdev/tasktickr/internal/logging"
	"github.com/charlieadamsdev/tasktickr/internal/store"
)

func (e *Engine) handleCommand(ctx context.Context, cmd command) {
	switch cmd.op {
	case opAdd:
		e.handleAdd(ctx, cmd.title)
	case opMove:
		e.handleMove(ctx, cmd.taskID, cmd.target)
	case opDelete:
		e.handleDelete(ctx, cmd.taskID)
	case opRename:
		e.handleRename(ctx, cmd.taskID, cmd.title)
	}
}

func (e *Engine) handleAdd(ctx context.Context, title string) {
	log := e.log.WithOp("add")

	// The provisional record makes the task visible immediately; the
	// store assigns the authoritative identity on success.
	provisional := board.Task{
		ID:        uuid.New(),
		Title:     title,
		Column:    board.ColumnTodo,
		CreatedAt: time.Now(),
	}
	e.putTask(provisional)

	stored, err := e.store.CreateTask(ctx, title)
	if err != nil {
		e.removeTask(provisional.ID)
		e.fail(opAdd, err, log)
		return
	}

	e.removeTask(provisional.ID)
	e.putTask(stored)
	log.WithTask(stored.ID.String()).Debug("task created")
}

func (e *Engine) handleMove(ctx context.Context, taskID uuid.UUID, target board.Column) {
	log := e.log.WithOp("move").WithTask(taskID.String())

	current, ok := e.getTask(taskID)
	if !ok {
		e.fail(opMove, errors.NewNotFoundError("task", taskID.String()), log)
		return
	}

	switch board.Classify(current.Column, target) {
	case board.TransitionNone:
		return
	case board.TransitionMetadata:
		e.moveMetadata(ctx, current, target, log)
	case board.TransitionComplete:
		e.complete(ctx, current, log)
	case board.TransitionUncomplete:
		e.uncomplete(ctx, current, target, log)
	}
}

// moveMetadata handles todo <-> today: column membership changes, nothing
// else, and the price is never touched.
func (e *Engine) moveMetadata(ctx context.Context, current board.Task, target board.Column, log *logging.Logger) {
	prev := current.Clone()
	optimistic := current.Clone()
	optimistic.Column = target
	e.putTask(optimistic)

	col := target
	if _, err := e.store.UpdateTask(ctx, current.ID, store.TaskFields{Column: &col}); err != nil {
		if errors.IsStale(err) {
			// The task vanished under us; drop it rather than resurrect.
			e.removeTask(current.ID)
			return
		}
		e.putTask(prev)
		e.fail(opMove, err, log)
	}
}

// complete handles a move into done: the compound status + price + ledger
// write, retried as a unit on price conflicts.
func (e *Engine) complete(ctx context.Context, current board.Task, log *logging.Logger) {
	prev := current.Clone()
	now := time.Now()

	optimistic := current.Clone()
	optimistic.Column = board.ColumnDone
	optimistic.CompletedAt = &now
	e.putTask(optimistic)

	applied, statusWritten, err := e.compoundWrite(ctx, log, func(price store.Price) (ledger.Change, store.TaskFields, error) {
		change := e.calc.OnComplete(current.ID, price.Value, now)
		done := board.ColumnDone
		return change, store.TaskFields{
			Column:            &done,
			SetCompletedAt:    true,
			CompletedAt:       &now,
			SetLastPriceDelta: true,
			LastPriceDelta:    change.TaskDelta,
		}, nil
	}, current.ID)
	if err != nil {
		if errors.IsStale(err) && !statusWritten {
			// The task vanished before the status write landed; drop
			// it rather than resurrect.
			e.removeTask(current.ID)
			return
		}
		e.putTask(prev)
		if statusWritten {
			e.rollbackStatus(ctx, prev, log)
		}
		e.fail(opMove, err, log)
		return
	}

	final := optimistic.Clone()
	final.LastPriceDelta = applied.TaskDelta
	e.putTask(final)
	e.setPrice(applied.NewPrice)
	log.Info("task completed",
		"price", applied.NewPrice.StringFixed(2), "delta", applied.Delta.String())
}

// uncomplete handles a move out of done. The recorded delta is reversed
// exactly; a missing delta degrades to a status-only move with no price
// effect.
func (e *Engine) uncomplete(ctx context.Context, current board.Task, target board.Column, log *logging.Logger) {
	prev := current.Clone()
	now := time.Now()

	optimistic := current.Clone()
	optimistic.Column = target
	optimistic.CompletedAt = nil
	optimistic.LastPriceDelta = nil
	e.putTask(optimistic)

	col := target
	clearFields := store.TaskFields{
		Column:            &col,
		SetCompletedAt:    true,
		SetLastPriceDelta: true,
	}

	if current.LastPriceDelta == nil {
		// Should not happen if invariants held; log and continue with
		// zero price effect rather than failing the move.
		log.Warn("uncompleting with no recorded delta, price untouched",
			"error", errors.NewMissingDeltaError(current.ID.String()))
		if _, err := e.store.UpdateTask(ctx, current.ID, clearFields); err != nil {
			if errors.IsStale(err) {
				e.removeTask(current.ID)
				return
			}
			e.putTask(prev)
			e.fail(opMove, err, log)
		}
		return
	}

	applied, statusWritten, err := e.compoundWrite(ctx, log, func(price store.Price) (ledger.Change, store.TaskFields, error) {
		change, err := e.calc.OnUncomplete(current, price.Value, now)
		return change, clearFields, err
	}, current.ID)
	if err != nil {
		if errors.IsStale(err) && !statusWritten {
			e.removeTask(current.ID)
			return
		}
		e.putTask(prev)
		if statusWritten {
			e.rollbackStatus(ctx, prev, log)
		}
		e.fail(opMove, err, log)
		return
	}

	e.putTask(optimistic)
	e.setPrice(applied.NewPrice)
	log.Info("task uncompleted",
		"price", applied.NewPrice.StringFixed(2), "delta", applied.Delta.String())
}

// compoundWrite performs the status + price + ledger sequence as one
// logical operation. Each attempt starts from a fresh price read; only a
// ConflictError on the price write triggers another attempt, up to the
// configured bound. It reports whether a status write landed so the
// caller can undo it on failure.
func (e *Engine) compoundWrite(
	ctx context.Context,
	log *logging.Logger,
	prepare func(price store.Price) (ledger.Change, store.TaskFields, error),
	taskID uuid.UUID,
) (ledger.Change, bool, error) {
	statusWritten := false

	for attempt := 0; ; attempt++ {
		price, err := e.store.ReadPrice(ctx)
		if err != nil {
			return ledger.Change{}, statusWritten, err
		}

		change, fields, err := prepare(price)
		if err != nil {
			return ledger.Change{}, statusWritten, err
		}

		// Status first: a price change must never precede its task flip.
		if _, err := e.store.UpdateTask(ctx, taskID, fields); err != nil {
			return ledger.Change{}, statusWritten, err
		}
		statusWritten = true

		err = e.store.WritePrice(ctx, price.ID, change.NewPrice, &price.Value)
		if err == nil {
			// The entry is the audit record of the committed price; its
			// loss is logged but does not undo the write.
			if appendErr := e.store.AppendLedgerEntry(ctx, change.Entry); appendErr != nil {
				log.Error("ledger append failed", "error", appendErr)
			}
			return change, true, nil
		}
		if !errors.Is(err, errors.ErrConflict) || attempt >= e.retries {
			return ledger.Change{}, statusWritten, err
		}
		log.Warn("price write conflict, retrying with fresh read", "attempt", attempt+1)
	}
}

// rollbackStatus undoes a persisted status flip whose paired price effect
// never confirmed.
func (e *Engine) rollbackStatus(ctx context.Context, prevState board.Task, log *logging.Logger) {
	col := prevState.Column
	fields := store.TaskFields{
		Column:            &col,
		SetCompletedAt:    true,
		CompletedAt:       prevState.CompletedAt,
		SetLastPriceDelta: true,
		LastPriceDelta:    prevState.LastPriceDelta,
	}
	if _, err := e.store.UpdateTask(ctx, prevState.ID, fields); err != nil {
		log.Error("status rollback failed, awaiting feed correction", "error", err)
	}
}

func (e *Engine) handleDelete(ctx context.Context, taskID uuid.UUID) {
	log := e.log.WithOp("delete").WithTask(taskID.String())

	prev, ok := e.getTask(taskID)
	if !ok {
		return
	}
	e.removeTask(taskID)

	if err := e.store.DeleteTask(ctx, taskID); err != nil {
		if errors.IsStale(err) {
			// Already gone everywhere.
			return
		}
		e.putTask(prev)
		e.fail(opDelete, err, log)
	}
}

func (e *Engine) handleRename(ctx context.Context, taskID uuid.UUID, title string) {
	log := e.log.WithOp("rename").WithTask(taskID.String())

	current, ok := e.getTask(taskID)
	if !ok {
		e.fail(opRename, errors.NewNotFoundError("task", taskID.String()), log)
		return
	}

	prev := current.Clone()
	optimistic := current.Clone()
	optimistic.Title = title
	e.putTask(optimistic)

	if _, err := e.store.UpdateTask(ctx, taskID, store.TaskFields{Title: &title}); err != nil {
		if errors.IsStale(err) {
			e.removeTask(taskID)
			return
		}
		e.putTask(prev)
		e.fail(opRename, err, log)
	}
}
