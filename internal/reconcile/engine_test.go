package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/charlieadamsdev/tasktickr/internal/board"
	"github.com/charlieadamsdev/tasktickr/internal/errors"
	"github.com/charlieadamsdev/tasktickr/internal/feed"
	"github.com/charlieadamsdev/tasktickr/internal/ledger"
	"github.com/charlieadamsdev/tasktickr/internal/logging"
	"github.com/charlieadamsdev/tasktickr/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type failureRecorder struct {
	ops  []string
	errs []error
}

func (r *failureRecorder) handle(op string, err error) {
	r.ops = append(r.ops, op)
	r.errs = append(r.errs, err)
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.Memory, *failureRecorder) {
	t.Helper()
	m := store.NewMemory()
	rec := &failureRecorder{}
	opts = append([]Option{WithFailureHandler(rec.handle)}, opts...)
	e, err := New(m, ledger.NewCalculator(ledger.DefaultBonusPercent), logging.NopLogger(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		e.Close()
		m.Close()
	})
	return e, m, rec
}

// addTask drives the add command synchronously and returns the stored task.
func addTask(t *testing.T, e *Engine, m *store.Memory, title string) board.Task {
	t.Helper()
	e.handleCommand(context.Background(), command{op: opAdd, title: title})
	tasks, err := m.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	for _, task := range tasks {
		if task.Title == title {
			return task
		}
	}
	t.Fatalf("task %q not persisted", title)
	return board.Task{}
}

func move(e *Engine, id uuid.UUID, target board.Column) {
	e.handleCommand(context.Background(), command{op: opMove, taskID: id, target: target})
}

func TestEngine_AddTask(t *testing.T) {
	e, m, rec := newTestEngine(t)

	task := addTask(t, e, m, "write the report")

	snap := e.BoardSnapshot()
	if len(snap.Todo) != 1 || snap.Todo[0].ID != task.ID {
		t.Fatalf("snapshot should hold the stored task: %+v", snap.Todo)
	}
	if len(rec.ops) != 0 {
		t.Errorf("unexpected failures: %v", rec.errs)
	}
}

func TestEngine_AddTaskRollbackOnFailure(t *testing.T) {
	e, m, rec := newTestEngine(t)

	m.FailNext("create_task", errors.NewTransportError("create_task", nil))
	e.handleCommand(context.Background(), command{op: opAdd, title: "doomed"})

	if total := e.BoardSnapshot().Total(); total != 0 {
		t.Errorf("optimistic task should be rolled back, snapshot has %d", total)
	}
	if len(rec.ops) != 1 || rec.ops[0] != "add" {
		t.Errorf("expected one add failure signal, got %v", rec.ops)
	}
}

func TestEngine_MetadataMoveTouchesNothingElse(t *testing.T) {
	e, m, _ := newTestEngine(t)
	task := addTask(t, e, m, "plan sprint")

	move(e, task.ID, board.ColumnToday)

	snap := e.BoardSnapshot()
	if len(snap.Today) != 1 {
		t.Fatalf("task should be in today: %+v", snap)
	}
	if snap.Today[0].CompletedAt != nil || snap.Today[0].LastPriceDelta != nil {
		t.Error("metadata move must not touch completion state")
	}
	if m.LedgerLen() != 0 {
		t.Error("metadata move must not append a ledger entry")
	}
	if ps := e.PriceSnapshot(); !ps.Current.Equal(dec("10.00")) {
		t.Errorf("metadata move must not change price, got %v", ps.Current)
	}
}

func TestEngine_MoveSameColumnIsNoOp(t *testing.T) {
	e, m, rec := newTestEngine(t)
	task := addTask(t, e, m, "idle")

	move(e, task.ID, board.ColumnTodo)

	if m.LedgerLen() != 0 || len(rec.ops) != 0 {
		t.Error("same-column move should do nothing at all")
	}
}

func TestEngine_CompleteRaisesPrice(t *testing.T) {
	e, m, _ := newTestEngine(t)
	task := addTask(t, e, m, "ship it")

	move(e, task.ID, board.ColumnDone)

	ps := e.PriceSnapshot()
	if !ps.Current.Equal(dec("10.50")) {
		t.Errorf("price = %v, want 10.50", ps.Current)
	}
	if !ps.Previous.Equal(dec("10.00")) || !ps.Delta.Equal(dec("0.50")) {
		t.Errorf("previous/delta = %v/%v, want 10.00/0.50", ps.Previous, ps.Delta)
	}

	snap := e.BoardSnapshot()
	if len(snap.Done) != 1 {
		t.Fatalf("task should be in done: %+v", snap)
	}
	done := snap.Done[0]
	if done.CompletedAt == nil {
		t.Error("completed task should carry a completion timestamp")
	}
	if done.LastPriceDelta == nil || !done.LastPriceDelta.Equal(dec("0.5")) {
		t.Errorf("recorded delta = %v, want 0.5", done.LastPriceDelta)
	}
	if m.LedgerLen() != 1 {
		t.Errorf("expected exactly one ledger entry, got %d", m.LedgerLen())
	}

	stored, _ := m.ReadPrice(context.Background())
	if !stored.Value.Equal(dec("10.50")) {
		t.Errorf("store price = %v, want 10.50", stored.Value)
	}
}

// The canonical scenario: complete A, complete B, uncomplete A.
func TestEngine_CompleteCompleteUncomplete(t *testing.T) {
	e, m, _ := newTestEngine(t)
	a := addTask(t, e, m, "task A")
	b := addTask(t, e, m, "task B")

	move(e, a.ID, board.ColumnDone)
	move(e, b.ID, board.ColumnDone)
	if ps := e.PriceSnapshot(); !ps.Current.Equal(dec("11.03")) {
		t.Fatalf("after both completions price = %v, want 11.03", ps.Current)
	}

	move(e, a.ID, board.ColumnTodo)
	if ps := e.PriceSnapshot(); !ps.Current.Equal(dec("10.53")) {
		t.Errorf("after uncompleting A price = %v, want 10.53", ps.Current)
	}

	snap := e.BoardSnapshot()
	if len(snap.Todo) != 1 || len(snap.Done) != 1 {
		t.Fatalf("unexpected board: %+v", snap)
	}
	if snap.Todo[0].LastPriceDelta != nil || snap.Todo[0].CompletedAt != nil {
		t.Error("uncompleted task must have its completion state cleared")
	}
	if m.LedgerLen() != 3 {
		t.Errorf("expected 3 ledger entries, got %d", m.LedgerLen())
	}
}

func TestEngine_CompleteUncompleteRestoresPrice(t *testing.T) {
	e, m, _ := newTestEngine(t)
	task := addTask(t, e, m, "bounce")

	move(e, task.ID, board.ColumnDone)
	move(e, task.ID, board.ColumnToday)

	ps := e.PriceSnapshot()
	if ps.Current.Sub(dec("10.00")).Abs().GreaterThan(dec("0.01")) {
		t.Errorf("price should return to 10.00 within rounding, got %v", ps.Current)
	}
}

func TestEngine_ConflictRetriesOnceWithFreshRead(t *testing.T) {
	e, m, rec := newTestEngine(t)
	task := addTask(t, e, m, "contended")

	// First price write attempt collides; the retry re-reads and lands.
	m.FailNext("write_price", errors.NewConflictError("price changed since read", nil))
	move(e, task.ID, board.ColumnDone)

	if len(rec.ops) != 0 {
		t.Fatalf("retry should have succeeded, got failures: %v", rec.errs)
	}
	if ps := e.PriceSnapshot(); !ps.Current.Equal(dec("10.50")) {
		t.Errorf("price = %v, want 10.50 after retry", ps.Current)
	}
	if m.LedgerLen() != 1 {
		t.Errorf("expected one ledger entry after retry, got %d", m.LedgerLen())
	}
}

func TestEngine_ConflictExhaustionRollsBackStatusOnly(t *testing.T) {
	e, m, rec := newTestEngine(t, WithConflictRetries(0))
	task := addTask(t, e, m, "unlucky")

	m.FailNext("write_price", errors.NewConflictError("price changed since read", nil))
	move(e, task.ID, board.ColumnDone)

	if len(rec.ops) != 1 {
		t.Fatalf("expected a failure signal, got %v", rec.ops)
	}

	// Status rolled back locally and in the store; price untouched.
	snap := e.BoardSnapshot()
	if len(snap.Todo) != 1 || len(snap.Done) != 0 {
		t.Errorf("task should be back in todo: %+v", snap)
	}
	stored, _ := m.ListTasks(context.Background())
	if stored[0].Completed() || stored[0].LastPriceDelta != nil {
		t.Errorf("store status should be rolled back: %+v", stored[0])
	}
	price, _ := m.ReadPrice(context.Background())
	if !price.Value.Equal(dec("10.00")) {
		t.Errorf("price must be untouched, got %v", price.Value)
	}
	if m.LedgerLen() != 0 {
		t.Error("no ledger entry may exist for an unconfirmed completion")
	}
}

func TestEngine_UncompleteWithoutDeltaHasNoPriceEffect(t *testing.T) {
	e, m, rec := newTestEngine(t)
	task := addTask(t, e, m, "imported as done")

	// Force the anomalous state directly in the store: done, no delta.
	now := time.Now()
	done := board.ColumnDone
	if _, err := m.UpdateTask(context.Background(), task.ID, store.TaskFields{
		Column:         &done,
		SetCompletedAt: true,
		CompletedAt:    &now,
	}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if err := e.resync(context.Background()); err != nil {
		t.Fatalf("resync: %v", err)
	}

	move(e, task.ID, board.ColumnTodo)

	if len(rec.ops) != 0 {
		t.Fatalf("missing delta must not fail the move: %v", rec.errs)
	}
	snap := e.BoardSnapshot()
	if len(snap.Todo) != 1 {
		t.Fatalf("task should have moved to todo: %+v", snap)
	}
	if ps := e.PriceSnapshot(); !ps.Current.Equal(dec("10.00")) {
		t.Errorf("price must be untouched, got %v", ps.Current)
	}
	if m.LedgerLen() != 0 {
		t.Error("no ledger entry for a zero-effect uncompletion")
	}
}

func TestEngine_DeleteRollbackOnFailure(t *testing.T) {
	e, m, rec := newTestEngine(t)
	task := addTask(t, e, m, "sticky")

	m.FailNext("delete_task", errors.NewTransportError("delete_task", nil))
	e.handleCommand(context.Background(), command{op: opDelete, taskID: task.ID})

	if e.BoardSnapshot().Total() != 1 {
		t.Error("failed delete should restore the task")
	}
	if len(rec.ops) != 1 || rec.ops[0] != "delete" {
		t.Errorf("expected one delete failure, got %v", rec.ops)
	}
}

func TestEngine_DeleteStaleIsQuiet(t *testing.T) {
	e, m, rec := newTestEngine(t)
	task := addTask(t, e, m, "already gone")

	// Another actor deletes it first.
	if err := m.DeleteTask(context.Background(), task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	e.handleCommand(context.Background(), command{op: opDelete, taskID: task.ID})

	if e.BoardSnapshot().Total() != 0 {
		t.Error("stale delete should leave the task removed")
	}
	if len(rec.ops) != 0 {
		t.Errorf("stale delete should not signal failure: %v", rec.ops)
	}
}

func TestEngine_CompleteStaleTaskIsDropped(t *testing.T) {
	e, m, rec := newTestEngine(t)
	task := addTask(t, e, m, "deleted elsewhere")

	// Another actor deletes it before the completion lands.
	if err := m.DeleteTask(context.Background(), task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	move(e, task.ID, board.ColumnDone)

	if e.BoardSnapshot().Total() != 0 {
		t.Error("stale completion should drop the task, not resurrect it")
	}
	if len(rec.ops) != 0 {
		t.Errorf("stale completion should not signal failure: %v", rec.ops)
	}
	price, _ := m.ReadPrice(context.Background())
	if !price.Value.Equal(dec("10.00")) {
		t.Errorf("price must be untouched, got %v", price.Value)
	}
	if m.LedgerLen() != 0 {
		t.Error("no ledger entry may exist for a vanished task")
	}
}

func TestEngine_UncompleteStaleTaskIsDropped(t *testing.T) {
	e, m, rec := newTestEngine(t)
	task := addTask(t, e, m, "finished then purged")
	move(e, task.ID, board.ColumnDone)

	if err := m.DeleteTask(context.Background(), task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	move(e, task.ID, board.ColumnToday)

	if e.BoardSnapshot().Total() != 0 {
		t.Error("stale uncompletion should drop the task, not resurrect it")
	}
	if len(rec.ops) != 0 {
		t.Errorf("stale uncompletion should not signal failure: %v", rec.ops)
	}
	// The earned completion value stays in place.
	price, _ := m.ReadPrice(context.Background())
	if !price.Value.Equal(dec("10.50")) {
		t.Errorf("price = %v, want 10.50", price.Value)
	}
}

func TestEngine_Rename(t *testing.T) {
	e, m, rec := newTestEngine(t)
	task := addTask(t, e, m, "old name")

	e.handleCommand(context.Background(), command{op: opRename, taskID: task.ID, title: "new name"})

	snap := e.BoardSnapshot()
	if snap.Todo[0].Title != "new name" {
		t.Errorf("title = %q, want renamed", snap.Todo[0].Title)
	}

	m.FailNext("update_task", errors.NewTransportError("update_task", nil))
	e.handleCommand(context.Background(), command{op: opRename, taskID: task.ID, title: "never lands"})
	if got := e.BoardSnapshot().Todo[0].Title; got != "new name" {
		t.Errorf("failed rename should roll back, title = %q", got)
	}
	if len(rec.ops) != 1 || rec.ops[0] != "rename" {
		t.Errorf("expected one rename failure, got %v", rec.ops)
	}
}

func TestEngine_ApplyEventIdempotent(t *testing.T) {
	e, m, _ := newTestEngine(t)
	task := addTask(t, e, m, "echoed")

	before := e.BoardSnapshot()

	// An echo of the exact current state is a no-op by value equality.
	e.applyEvent(feed.NewTaskEvent(feed.EventUpdate, task))
	e.applyEvent(feed.NewTaskEvent(feed.EventUpdate, task))

	after := e.BoardSnapshot()
	if len(after.Todo) != len(before.Todo) || !after.Todo[0].Equal(before.Todo[0]) {
		t.Error("reapplying an identical feed event must not change state")
	}
}

func TestEngine_ApplyEventLastWriterWins(t *testing.T) {
	e, m, _ := newTestEngine(t)
	task := addTask(t, e, m, "contested")

	// A foreign update replaces local state wholesale.
	foreign := task.Clone()
	foreign.Title = "renamed elsewhere"
	foreign.Column = board.ColumnToday
	e.applyEvent(feed.NewTaskEvent(feed.EventUpdate, foreign))

	snap := e.BoardSnapshot()
	if len(snap.Today) != 1 || snap.Today[0].Title != "renamed elsewhere" {
		t.Errorf("feed update should replace local state: %+v", snap)
	}

	// A foreign delete removes it.
	e.applyEvent(feed.NewTaskEvent(feed.EventDelete, foreign))
	if e.BoardSnapshot().Total() != 0 {
		t.Error("feed delete should remove the task")
	}
}

func TestEngine_LedgerEventMovesPrice(t *testing.T) {
	e, _, _ := newTestEngine(t)

	taskID := uuid.New()
	e.applyEvent(feed.NewLedgerEvent(ledger.Entry{
		ID: uuid.New(), Timestamp: time.Now(),
		Price: dec("10.50"), TaskID: &taskID,
		Kind: ledger.KindCompletion, Delta: dec("0.50"),
	}))

	ps := e.PriceSnapshot()
	if !ps.Current.Equal(dec("10.50")) || !ps.Previous.Equal(dec("10.00")) {
		t.Errorf("price snapshot = %+v, want 10.50/10.00", ps)
	}

	// The same entry again changes nothing.
	e.applyEvent(feed.NewLedgerEvent(ledger.Entry{Price: dec("10.50")}))
	if ps := e.PriceSnapshot(); !ps.Previous.Equal(dec("10.00")) {
		t.Errorf("identical price must not shift previous, got %v", ps.Previous)
	}
}

func TestEngine_PriceHistory(t *testing.T) {
	e, m, _ := newTestEngine(t)
	task := addTask(t, e, m, "history maker")

	move(e, task.ID, board.ColumnDone)
	move(e, task.ID, board.ColumnTodo)

	points, err := e.PriceHistory(context.Background(), ledger.WindowDay)
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Price != "10.50" || points[1].Price != "10.00" {
		t.Errorf("points = %v", points)
	}
}

func TestEngine_SubmitValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)

	if err := e.SubmitAddTask("   "); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("empty title should fail validation, got %v", err)
	}
	if err := e.SubmitMove(uuid.New(), board.Column("archive")); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("unknown column should fail validation, got %v", err)
	}
	if err := e.SubmitRename(uuid.New(), ""); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("empty rename should fail validation, got %v", err)
	}
}
