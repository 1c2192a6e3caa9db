package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/charlieadamsdev/tasktickr/internal/board"
	"github.com/charlieadamsdev/tasktickr/internal/errors"
	"github.com/charlieadamsdev/tasktickr/internal/feed"
	"github.com/charlieadamsdev/tasktickr/internal/ledger"
)

// Memory is an in-memory Store used by tests and as the reference
// implementation of the contract. It supports fault injection and can be
// configured to ignore the conditional check on price writes, which lets
// tests demonstrate the lost-update race a real adapter must prevent.
type Memory struct {
	mu         sync.RWMutex
	closed     bool
	tasks      map[uuid.UUID]board.Task
	entries    []ledger.Entry
	price      Price
	atomic     bool
	dispatcher *feed.Dispatcher

	failMu   sync.Mutex
	failOp   string
	failErr  error
	failOnce bool

	// BeforeWritePrice, when set, runs after the conditional check has
	// been scheduled but before the value is written. Tests use it to
	// interleave two writers deterministically.
	BeforeWritePrice func()
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithStartingPrice seeds the price row with the given value instead of
// the default 10.00.
func WithStartingPrice(value decimal.Decimal) MemoryOption {
	return func(m *Memory) {
		m.price.Value = value
	}
}

// WithoutAtomicPriceWrites makes WritePrice ignore the expected value.
// Only for tests that need to exhibit the lost-update race.
func WithoutAtomicPriceWrites() MemoryOption {
	return func(m *Memory) {
		m.atomic = false
	}
}

// NewMemory creates an in-memory store seeded with a 10.00 price row.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		tasks:      make(map[uuid.UUID]board.Task),
		price:      Price{ID: uuid.New(), Value: decimal.RequireFromString("10.00")},
		atomic:     true,
		dispatcher: feed.NewDispatcher(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FailNext makes the next call of the named operation return err.
// Operation names match the Store method names in snake case:
// create_task, update_task, delete_task, list_tasks, read_price,
// write_price, append_ledger, query_ledger.
func (m *Memory) FailNext(op string, err error) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	m.failOp = op
	m.failErr = err
	m.failOnce = true
}

func (m *Memory) injectedFailure(op string) error {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	if m.failOp != op || m.failErr == nil {
		return nil
	}
	err := m.failErr
	if m.failOnce {
		m.failOp = ""
		m.failErr = nil
	}
	return err
}

// SignalReconnect simulates a transport drop and recovery, forcing every
// subscriber into a full resync.
func (m *Memory) SignalReconnect() {
	m.dispatcher.SignalResync()
}

// TaskCount returns the number of stored tasks.
func (m *Memory) TaskCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}

// LedgerLen returns the number of appended ledger entries.
func (m *Memory) LedgerLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) CreateTask(ctx context.Context, title string) (board.Task, error) {
	if err := m.injectedFailure("create_task"); err != nil {
		return board.Task{}, err
	}
	if err := ctx.Err(); err != nil {
		return board.Task{}, errors.NewTransportError("create_task", err)
	}

	task := board.Task{
		ID:        uuid.New(),
		Title:     title,
		Column:    board.ColumnTodo,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return board.Task{}, errors.ErrStoreClosed
	}
	m.tasks[task.ID] = task.Clone()
	m.mu.Unlock()

	m.dispatcher.Publish(feed.NewTaskEvent(feed.EventInsert, task))
	return task, nil
}

func (m *Memory) UpdateTask(ctx context.Context, id uuid.UUID, fields TaskFields) (board.Task, error) {
	if err := m.injectedFailure("update_task"); err != nil {
		return board.Task{}, err
	}
	if err := ctx.Err(); err != nil {
		return board.Task{}, errors.NewTransportError("update_task", err)
	}

	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return board.Task{}, errors.NewNotFoundError("task", id.String())
	}
	if fields.Title != nil {
		task.Title = *fields.Title
	}
	if fields.Column != nil {
		task.Column = *fields.Column
	}
	if fields.SetCompletedAt {
		task.CompletedAt = nil
		if fields.CompletedAt != nil {
			at := *fields.CompletedAt
			task.CompletedAt = &at
		}
	}
	if fields.SetLastPriceDelta {
		task.LastPriceDelta = nil
		if fields.LastPriceDelta != nil {
			d := *fields.LastPriceDelta
			task.LastPriceDelta = &d
		}
	}
	m.tasks[id] = task.Clone()
	m.mu.Unlock()

	m.dispatcher.Publish(feed.NewTaskEvent(feed.EventUpdate, task))
	return task, nil
}

func (m *Memory) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := m.injectedFailure("delete_task"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.NewTransportError("delete_task", err)
	}

	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return errors.NewNotFoundError("task", id.String())
	}
	delete(m.tasks, id)
	m.mu.Unlock()

	m.dispatcher.Publish(feed.NewTaskEvent(feed.EventDelete, task))
	return nil
}

func (m *Memory) ListTasks(ctx context.Context) ([]board.Task, error) {
	if err := m.injectedFailure("list_tasks"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	tasks := make([]board.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (m *Memory) ReadPrice(ctx context.Context) (Price, error) {
	if err := m.injectedFailure("read_price"); err != nil {
		return Price{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.price, nil
}

func (m *Memory) WritePrice(ctx context.Context, id uuid.UUID, value decimal.Decimal, expected *decimal.Decimal) error {
	if err := m.injectedFailure("write_price"); err != nil {
		return err
	}

	m.mu.Lock()
	if m.price.ID != id {
		m.mu.Unlock()
		return errors.NewNotFoundError("price", id.String())
	}
	if m.atomic && expected != nil && !m.price.Value.Equal(*expected) {
		m.mu.Unlock()
		return errors.NewConflictError("price changed since read", nil)
	}
	if m.BeforeWritePrice != nil {
		// Release the lock so a competing writer can run in the window.
		hook := m.BeforeWritePrice
		m.mu.Unlock()
		hook()
		m.mu.Lock()
	}
	m.price.Value = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) AppendLedgerEntry(ctx context.Context, entry ledger.Entry) error {
	if err := m.injectedFailure("append_ledger"); err != nil {
		return err
	}

	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()

	m.dispatcher.Publish(feed.NewLedgerEvent(entry))
	return nil
}

func (m *Memory) QueryLedger(ctx context.Context, since time.Time) ([]ledger.Entry, error) {
	if err := m.injectedFailure("query_ledger"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var out []ledger.Entry
	for _, e := range m.entries {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *Memory) Subscribe(tables ...feed.Table) (Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errors.ErrStoreClosed
	}
	return newFeedSubscription(m.dispatcher, tables...), nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.dispatcher.Clear()
	return nil
}
