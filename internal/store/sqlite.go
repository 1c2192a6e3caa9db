package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/charlieadamsdev/tasktickr/internal/board"
	"github.com/charlieadamsdev/tasktickr/internal/errors"
	"github.com/charlieadamsdev/tasktickr/internal/feed"
	"github.com/charlieadamsdev/tasktickr/internal/ledger"
)

// DefaultTimeout bounds every store call unless configured otherwise.
const DefaultTimeout = 5 * time.Second

// SQLite is the durable Store implementation. It opens the database in
// WAL mode and publishes every committed mutation to in-process
// subscribers, so several engines sharing one SQLite instance observe
// each other's writes through the change feed.
//
// Price values are stored canonically with two decimal places, which is
// what makes the conditional WHERE value = ? check on WritePrice exact.
type SQLite struct {
	db         *sql.DB
	timeout    time.Duration
	dispatcher *feed.Dispatcher

	mu     sync.RWMutex
	closed bool
}

// SQLiteOption configures a SQLite store.
type SQLiteOption func(*SQLite)

// WithCallTimeout sets the per-call timeout. Zero disables it.
func WithCallTimeout(d time.Duration) SQLiteOption {
	return func(s *SQLite) {
		s.timeout = d
	}
}

// NewSQLite opens (creating if needed) the database at path and migrates
// the schema. Use ":memory:" for an ephemeral database. The price row is
// seeded with startingPrice on first open.
func NewSQLite(path string, startingPrice decimal.Decimal, opts ...SQLiteOption) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{
		db:         db,
		timeout:    DefaultTimeout,
		dispatcher: feed.NewDispatcher(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(startingPrice); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate(startingPrice decimal.Decimal) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		column_name TEXT NOT NULL DEFAULT 'todo',
		created_at TEXT NOT NULL,
		completed_at TEXT,
		last_price_delta TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at DESC);

	CREATE TABLE IF NOT EXISTS stock_prices (
		id TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id TEXT PRIMARY KEY,
		ts TEXT NOT NULL,
		price TEXT NOT NULL,
		task_id TEXT,
		kind TEXT NOT NULL,
		delta TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_price_history_ts ON price_history(ts);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM stock_prices`).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		_, err := s.db.Exec(`INSERT INTO stock_prices (id, value) VALUES (?, ?)`,
			uuid.NewString(), startingPrice.StringFixed(2))
		if err != nil {
			return err
		}
	}
	return nil
}

// opCtx derives the bounded context every store call runs under.
func (s *SQLite) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// mapErr converts driver-level failures into the engine's taxonomy.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.NewTransportError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *SQLite) CreateTask(ctx context.Context, title string) (board.Task, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	task := board.Task{
		ID:        uuid.New(),
		Title:     title,
		Column:    board.ColumnTodo,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, column_name, created_at) VALUES (?, ?, ?, ?)`,
		task.ID.String(), task.Title, string(task.Column), task.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return board.Task{}, mapErr("create_task", err)
	}

	s.dispatcher.Publish(feed.NewTaskEvent(feed.EventInsert, task))
	return task, nil
}

func (s *SQLite) UpdateTask(ctx context.Context, id uuid.UUID, fields TaskFields) (board.Task, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return board.Task{}, mapErr("update_task", err)
	}
	defer tx.Rollback()

	task, err := scanTask(tx.QueryRowContext(ctx,
		`SELECT id, title, column_name, created_at, completed_at, last_price_delta
		 FROM tasks WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return board.Task{}, errors.NewNotFoundError("task", id.String())
		}
		return board.Task{}, mapErr("update_task", err)
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

	var completedAt, delta any
	if task.CompletedAt != nil {
		completedAt = task.CompletedAt.Format(time.RFC3339Nano)
	}
	if task.LastPriceDelta != nil {
		delta = task.LastPriceDelta.String()
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET title = ?, column_name = ?, completed_at = ?, last_price_delta = ? WHERE id = ?`,
		task.Title, string(task.Column), completedAt, delta, id.String())
	if err != nil {
		return board.Task{}, mapErr("update_task", err)
	}
	if err := tx.Commit(); err != nil {
		return board.Task{}, mapErr("update_task", err)
	}

	s.dispatcher.Publish(feed.NewTaskEvent(feed.EventUpdate, task))
	return task, nil
}

func (s *SQLite) DeleteTask(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	task, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT id, title, column_name, created_at, completed_at, last_price_delta
		 FROM tasks WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFoundError("task", id.String())
		}
		return mapErr("delete_task", err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return mapErr("delete_task", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("task", id.String())
	}

	s.dispatcher.Publish(feed.NewTaskEvent(feed.EventDelete, task))
	return nil
}

func (s *SQLite) ListTasks(ctx context.Context) ([]board.Task, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, column_name, created_at, completed_at, last_price_delta
		 FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapErr("list_tasks", err)
	}
	defer rows.Close()

	var tasks []board.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, mapErr("list_tasks", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, mapErr("list_tasks", rows.Err())
}

func (s *SQLite) ReadPrice(ctx context.Context) (Price, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var idStr, valueStr string
	err := s.db.QueryRowContext(ctx, `SELECT id, value FROM stock_prices LIMIT 1`).Scan(&idStr, &valueStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Price{}, errors.NewNotFoundError("price", "")
		}
		return Price{}, mapErr("read_price", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return Price{}, fmt.Errorf("read_price: bad price id %q: %w", idStr, err)
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return Price{}, fmt.Errorf("read_price: bad price value %q: %w", valueStr, err)
	}
	return Price{ID: id, Value: value}, nil
}

func (s *SQLite) WritePrice(ctx context.Context, id uuid.UUID, value decimal.Decimal, expected *decimal.Decimal) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var res sql.Result
	var err error
	if expected != nil {
		res, err = s.db.ExecContext(ctx,
			`UPDATE stock_prices SET value = ? WHERE id = ? AND value = ?`,
			value.StringFixed(2), id.String(), expected.StringFixed(2))
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE stock_prices SET value = ? WHERE id = ?`,
			value.StringFixed(2), id.String())
	}
	if err != nil {
		return mapErr("write_price", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return mapErr("write_price", err)
	}
	if n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM stock_prices WHERE id = ?`, id.String()).Scan(&exists); err != nil {
			return mapErr("write_price", err)
		}
		if exists == 0 {
			return errors.NewNotFoundError("price", id.String())
		}
		return errors.NewConflictError("price changed since read", nil)
	}
	return nil
}

func (s *SQLite) AppendLedgerEntry(ctx context.Context, entry ledger.Entry) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var taskID any
	if entry.TaskID != nil {
		taskID = entry.TaskID.String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_history (id, ts, price, task_id, kind, delta) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID.String(), entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.Price.StringFixed(2), taskID, string(entry.Kind), entry.Delta.String())
	if err != nil {
		return mapErr("append_ledger", err)
	}

	s.dispatcher.Publish(feed.NewLedgerEvent(entry))
	return nil
}

func (s *SQLite) QueryLedger(ctx context.Context, since time.Time) ([]ledger.Entry, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, price, task_id, kind, delta FROM price_history WHERE ts >= ? ORDER BY ts ASC`,
		since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, mapErr("query_ledger", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var idStr, tsStr, priceStr, kind, deltaStr string
		var taskIDStr sql.NullString
		if err := rows.Scan(&idStr, &tsStr, &priceStr, &taskIDStr, &kind, &deltaStr); err != nil {
			return nil, mapErr("query_ledger", err)
		}

		entry := ledger.Entry{Kind: ledger.Kind(kind)}
		if entry.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("query_ledger: bad entry id %q: %w", idStr, err)
		}
		if entry.Timestamp, err = time.Parse(time.RFC3339Nano, tsStr); err != nil {
			return nil, fmt.Errorf("query_ledger: bad timestamp %q: %w", tsStr, err)
		}
		if entry.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("query_ledger: bad price %q: %w", priceStr, err)
		}
		if entry.Delta, err = decimal.NewFromString(deltaStr); err != nil {
			return nil, fmt.Errorf("query_ledger: bad delta %q: %w", deltaStr, err)
		}
		if taskIDStr.Valid {
			tid, err := uuid.Parse(taskIDStr.String)
			if err != nil {
				return nil, fmt.Errorf("query_ledger: bad task id %q: %w", taskIDStr.String, err)
			}
			entry.TaskID = &tid
		}
		entries = append(entries, entry)
	}
	return entries, mapErr("query_ledger", rows.Err())
}

func (s *SQLite) Subscribe(tables ...feed.Table) (Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.ErrStoreClosed
	}
	return newFeedSubscription(s.dispatcher, tables...), nil
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.dispatcher.Clear()
	return s.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (board.Task, error) {
	var idStr, title, column, createdStr string
	var completedStr, deltaStr sql.NullString

	if err := row.Scan(&idStr, &title, &column, &createdStr, &completedStr, &deltaStr); err != nil {
		return board.Task{}, err
	}

	task := board.Task{Title: title, Column: board.Column(column)}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return board.Task{}, fmt.Errorf("bad task id %q: %w", idStr, err)
	}
	task.ID = id

	if task.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr); err != nil {
		return board.Task{}, fmt.Errorf("bad created_at %q: %w", createdStr, err)
	}
	if completedStr.Valid {
		at, err := time.Parse(time.RFC3339Nano, completedStr.String)
		if err != nil {
			return board.Task{}, fmt.Errorf("bad completed_at %q: %w", completedStr.String, err)
		}
		task.CompletedAt = &at
	}
	if deltaStr.Valid {
		d, err := decimal.NewFromString(deltaStr.String)
		if err != nil {
			return board.Task{}, fmt.Errorf("bad last_price_delta %q: %w", deltaStr.String, err)
		}
		task.LastPriceDelta = &d
	}
	return task, nil
}
