package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/charlieadamsdev/tasktickr/internal/board"
	"github.com/charlieadamsdev/tasktickr/internal/config"
	"github.com/charlieadamsdev/tasktickr/internal/ledger"
	"github.com/charlieadamsdev/tasktickr/internal/logging"
	"github.com/charlieadamsdev/tasktickr/internal/reconcile"
	"github.com/charlieadamsdev/tasktickr/internal/store"
)

// commandTimeout bounds how long a one-shot command waits for its
// submitted operation to land before reporting failure.
const commandTimeout = 10 * time.Second

// session bundles everything a command needs: the durable store, the
// reconciler running on top of it, and a channel carrying operation
// failures surfaced by the engine.
type session struct {
	cfg      *config.Config
	store    *store.SQLite
	engine   *reconcile.Engine
	log      *logging.Logger
	failures chan error
	cancel   context.CancelFunc
}

// openSession builds the full stack from configuration and starts the
// engine loop. Callers must call close when done.
func openSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logging.NopLogger()
	if cfg.Logging.Enabled {
		logDir := filepath.Join(config.DataDir(), "logs")
		l, err := logging.NewLogger(logDir, logging.ParseLevel(cfg.Logging.Level))
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		log = l
	}

	starting := decimal.RequireFromString("10.00")
	if cfg.Price.Starting != "" {
		starting, err = decimal.NewFromString(cfg.Price.Starting)
		if err != nil {
			return nil, fmt.Errorf("parsing price.starting: %w", err)
		}
	}

	st, err := store.NewSQLite(cfg.Store.ResolvePath(), starting,
		store.WithCallTimeout(cfg.Store.CallTimeout()))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	failures := make(chan error, 8)
	calc := ledger.NewCalculator(decimal.NewFromFloat(cfg.Price.BonusPercent))
	engine, err := reconcile.New(st, calc, log,
		reconcile.WithConflictRetries(cfg.Engine.ConflictRetries),
		reconcile.WithFailureHandler(func(op string, err error) {
			select {
			case failures <- fmt.Errorf("%s failed: %w", op, err):
			default:
			}
		}))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("starting engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)

	return &session{
		cfg:      cfg,
		store:    st,
		engine:   engine,
		log:      log,
		failures: failures,
		cancel:   cancel,
	}, nil
}

func (s *session) close() {
	s.engine.Close()
	s.cancel()
	s.store.Close()
	s.log.Close()
}

// await polls until cond holds, a submitted operation fails, or the
// timeout elapses. Submission outcomes are observed through state, not
// return values, so this is how one-shot commands learn their fate.
func (s *session) await(cond func() bool) error {
	deadline := time.After(commandTimeout)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case err := <-s.failures:
			return err
		case <-deadline:
			return fmt.Errorf("timed out waiting for the operation to apply")
		case <-tick.C:
			if cond() {
				return nil
			}
		}
	}
}

// resolveTask finds a task by full ID, unambiguous ID prefix, or exact
// title match (case-insensitive).
func (s *session) resolveTask(ref string) (board.Task, error) {
	snap := s.engine.BoardSnapshot()
	all := make([]board.Task, 0, snap.Total())
	for _, col := range [][]board.Task{snap.Todo, snap.Today, snap.Done} {
		all = append(all, col...)
	}

	if id, err := uuid.Parse(ref); err == nil {
		for _, t := range all {
			if t.ID == id {
				return t, nil
			}
		}
		return board.Task{}, fmt.Errorf("no task with id %s", ref)
	}

	var matches []board.Task
	lower := strings.ToLower(ref)
	for _, t := range all {
		if strings.HasPrefix(t.ID.String(), lower) || strings.ToLower(t.Title) == lower {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return board.Task{}, fmt.Errorf("no task matching %q", ref)
	case 1:
		return matches[0], nil
	default:
		return board.Task{}, fmt.Errorf("%q is ambiguous: %d tasks match", ref, len(matches))
	}
}
