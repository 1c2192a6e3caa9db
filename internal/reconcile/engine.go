package reconcile

import (
	"context"
	"strings"
	"sync"
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

// DefaultConflictRetries bounds how many times the compound completion
// write is reattempted after a price-write conflict.
const DefaultConflictRetries = 3

const commandBuffer = 64

type commandOp string

const (
	opAdd    commandOp = "add"
	opMove   commandOp = "move"
	opDelete commandOp = "delete"
	opRename commandOp = "rename"
)

type command struct {
	op     commandOp
	taskID uuid.UUID
	title  string
	target board.Column
}

// FailureHandler is notified when a submitted operation fails after its
// optimistic mutation was rolled back. It is the "operation failed"
// signal surfaced to presentation collaborators.
type FailureHandler func(op string, err error)

// PriceSnapshot is the engine's view of the shared price.
type PriceSnapshot struct {
	Current  decimal.Decimal
	Previous decimal.Decimal
	Delta    decimal.Decimal
}

// Engine is one observer's reconciler instance. Create it with New, drive
// it with Run, and submit commands from any goroutine.
type Engine struct {
	store     store.Store
	calc      *ledger.Calculator
	log       *logging.Logger
	retries   int
	onFailure FailureHandler

	commands chan command
	sub      store.Subscription

	quit     chan struct{}
	stopOnce sync.Once

	// mu lets snapshot readers observe consistent state. The loop
	// goroutine is the only writer.
	mu      sync.RWMutex
	tasks   map[uuid.UUID]board.Task
	priceID uuid.UUID
	price   decimal.Decimal
	prev    decimal.Decimal
}

// Option configures an Engine.
type Option func(*Engine)

// WithConflictRetries sets the retry bound for the compound completion
// write. Values below zero are treated as zero (no retries).
func WithConflictRetries(n int) Option {
	return func(e *Engine) {
		if n < 0 {
			n = 0
		}
		e.retries = n
	}
}

// WithFailureHandler registers the user-visible failure signal.
func WithFailureHandler(h FailureHandler) Option {
	return func(e *Engine) {
		e.onFailure = h
	}
}

// New creates an Engine bound to the store, subscribes to the change
// feed, and loads initial state. The returned engine does nothing until
// Run is called.
func New(st store.Store, calc *ledger.Calculator, log *logging.Logger, opts ...Option) (*Engine, error) {
	if log == nil {
		log = logging.NopLogger()
	}
	e := &Engine{
		store:    st,
		calc:     calc,
		log:      log,
		retries:  DefaultConflictRetries,
		commands: make(chan command, commandBuffer),
		quit:     make(chan struct{}),
		tasks:    make(map[uuid.UUID]board.Task),
	}
	for _, opt := range opts {
		opt(e)
	}

	sub, err := st.Subscribe(feed.TableTasks, feed.TableLedger)
	if err != nil {
		return nil, err
	}
	e.sub = sub

	if err := e.resync(context.Background()); err != nil {
		sub.Close()
		return nil, err
	}
	return e, nil
}

// Run processes commands and feed events until ctx is canceled or Close
// is called. Everything that mutates engine state happens on this
// goroutine, one item at a time in arrival order.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.quit:
			return
		case cmd := <-e.commands:
			e.handleCommand(ctx, cmd)
		case ev, ok := <-e.sub.Events():
			if !ok {
				return
			}
			e.applyEvent(ev)
		case _, ok := <-e.sub.Resyncs():
			if !ok {
				return
			}
			e.log.WithOp("resync").Warn("feed continuity lost, refetching state")
			if err := e.resync(ctx); err != nil {
				e.log.WithOp("resync").Error("resync failed", "error", err)
			}
		}
	}
}

// Close stops the engine and tears down its feed subscription.
func (e *Engine) Close() {
	e.stopOnce.Do(func() {
		close(e.quit)
		e.sub.Close()
	})
}

// SubmitAddTask queues creation of a task with the given title.
// Validation failures are returned synchronously; the outcome of the
// write is observed through snapshot changes, not a return value.
func (e *Engine) SubmitAddTask(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.NewValidationError("title", "must not be empty")
	}
	return e.enqueue(command{op: opAdd, title: title})
}

// SubmitMove queues moving a task to the target column. A move into done
// completes the task; a move out of done uncompletes it.
func (e *Engine) SubmitMove(taskID uuid.UUID, target board.Column) error {
	if !target.Valid() {
		return errors.NewValidationError("column", "unknown target column "+string(target))
	}
	return e.enqueue(command{op: opMove, taskID: taskID, target: target})
}

// SubmitDelete queues removal of a task.
func (e *Engine) SubmitDelete(taskID uuid.UUID) error {
	return e.enqueue(command{op: opDelete, taskID: taskID})
}

// SubmitRename queues a title change for a task.
func (e *Engine) SubmitRename(taskID uuid.UUID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.NewValidationError("title", "must not be empty")
	}
	return e.enqueue(command{op: opRename, taskID: taskID, title: title})
}

func (e *Engine) enqueue(cmd command) error {
	// Checked alone first: once Close has run, both cases of the second
	// select are ready and the runtime picks between them at random.
	select {
	case <-e.quit:
		return errors.ErrEngineStopped
	default:
	}
	select {
	case <-e.quit:
		return errors.ErrEngineStopped
	case e.commands <- cmd:
		return nil
	}
}

// BoardSnapshot returns the current per-column projection of in-memory
// state.
func (e *Engine) BoardSnapshot() board.Snapshot {
	e.mu.RLock()
	tasks := make([]board.Task, 0, len(e.tasks))
	for _, t := range e.tasks {
		tasks = append(tasks, t.Clone())
	}
	e.mu.RUnlock()
	return board.BuildSnapshot(tasks)
}

// PriceSnapshot returns the current and previous price and their
// difference.
func (e *Engine) PriceSnapshot() PriceSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return PriceSnapshot{
		Current:  e.price,
		Previous: e.prev,
		Delta:    e.price.Sub(e.prev),
	}
}

// PriceHistory returns chartable price samples within the window,
// ascending by time. It queries the ledger directly; history is served
// from the durable audit trail, not from in-memory state.
func (e *Engine) PriceHistory(ctx context.Context, w ledger.Window) ([]ledger.Point, error) {
	entries, err := e.store.QueryLedger(ctx, w.Start(time.Now()))
	if err != nil {
		return nil, err
	}
	return ledger.HistoryPoints(entries), nil
}

// resync replaces all in-memory state with a full fetch from the store.
func (e *Engine) resync(ctx context.Context) error {
	tasks, err := e.store.ListTasks(ctx)
	if err != nil {
		return err
	}
	price, err := e.store.ReadPrice(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.tasks = make(map[uuid.UUID]board.Task, len(tasks))
	for _, t := range tasks {
		e.tasks[t.ID] = t.Clone()
	}
	e.priceID = price.ID
	e.price = price.Value
	e.prev = price.Value
	e.mu.Unlock()

	e.log.WithOp("resync").Debug("state loaded", "tasks", len(tasks), "price", price.Value.StringFixed(2))
	return nil
}

// --- state helpers; the loop goroutine is the only caller that mutates ---

func (e *Engine) getTask(id uuid.UUID) (board.Task, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tasks[id]
	if !ok {
		return board.Task{}, false
	}
	return t.Clone(), true
}

func (e *Engine) putTask(t board.Task) {
	e.mu.Lock()
	e.tasks[t.ID] = t.Clone()
	e.mu.Unlock()
}

func (e *Engine) removeTask(id uuid.UUID) {
	e.mu.Lock()
	delete(e.tasks, id)
	e.mu.Unlock()
}

func (e *Engine) setPrice(value decimal.Decimal) {
	e.mu.Lock()
	if !e.price.Equal(value) {
		e.prev = e.price
		e.price = value
	}
	e.mu.Unlock()
}

func (e *Engine) fail(op commandOp, err error, log *logging.Logger) {
	log.Error("operation failed", "error", err)
	if e.onFailure != nil {
		e.onFailure(string(op), err)
	}
}
