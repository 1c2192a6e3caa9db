package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/charlieadamsdev/tasktickr/internal/board"
	"github.com/charlieadamsdev/tasktickr/internal/errors"
)

// Kind distinguishes the two events that move the price.
type Kind string

const (
	KindCompletion Kind = "completion"
	KindUncomplete Kind = "uncomplete"
)

// DefaultBonusPercent is the completion bonus as a fraction of the
// current price.
var DefaultBonusPercent = decimal.RequireFromString("0.05")

// Entry is one immutable ledger record. Entries are never mutated or
// deleted; they are the durable audit trail and the sole source for
// time-windowed price history.
type Entry struct {
	ID        uuid.UUID
	Timestamp time.Time
	Price     decimal.Decimal // Resulting price after the change, clamped
	TaskID    *uuid.UUID      // Originating task; nil for exogenous adjustments
	Kind      Kind
	Delta     decimal.Decimal // Signed, unclamped intended change
}

// Change describes the full intended effect of a completion or
// uncompletion on the shared price. The reconciler persists NewPrice,
// records TaskDelta on the task (nil clears the field), and appends Entry,
// as one logical operation.
type Change struct {
	NewPrice  decimal.Decimal
	Delta     decimal.Decimal
	TaskDelta *decimal.Decimal
	Entry     Entry
}

// Calculator computes price changes for task transitions across the done
// boundary. It holds the bonus percentage and nothing else; it is safe to
// share between goroutines.
type Calculator struct {
	bonus decimal.Decimal
}

// NewCalculator creates a Calculator with the given completion bonus
// fraction. A zero bonus is replaced with DefaultBonusPercent.
func NewCalculator(bonus decimal.Decimal) *Calculator {
	if bonus.IsZero() {
		bonus = DefaultBonusPercent
	}
	return &Calculator{bonus: bonus}
}

// OnComplete computes the price change for completing a task.
// The delta is a fraction of the current price, unrounded; the new price
// is the current price plus that delta, rounded to 2 places at the point
// of commit. The returned TaskDelta must be persisted onto the task
// before any later completion recomputes it.
func (c *Calculator) OnComplete(taskID uuid.UUID, current decimal.Decimal, now time.Time) Change {
	delta := current.Mul(c.bonus)
	newPrice := clampFloor(round2(current.Add(delta)))
	id := taskID
	return Change{
		NewPrice:  newPrice,
		Delta:     delta,
		TaskDelta: &delta,
		Entry: Entry{
			ID:        uuid.New(),
			Timestamp: now,
			Price:     newPrice,
			TaskID:    &id,
			Kind:      KindCompletion,
			Delta:     delta,
		},
	}
}

// OnUncomplete computes the price change for uncompleting a task. It
// reverses exactly the delta recorded when the task was last completed.
// If the task carries no recorded delta, a MissingDeltaError is returned;
// the caller treats that as "no price effect, clear state and continue",
// not as fatal.
func (c *Calculator) OnUncomplete(task board.Task, current decimal.Decimal, now time.Time) (Change, error) {
	if task.LastPriceDelta == nil {
		return Change{}, errors.NewMissingDeltaError(task.ID.String())
	}
	delta := task.LastPriceDelta.Neg()
	newPrice := clampFloor(round2(current.Add(delta)))
	id := task.ID
	return Change{
		NewPrice:  newPrice,
		Delta:     delta,
		TaskDelta: nil, // Clears the task's recorded delta
		Entry: Entry{
			ID:        uuid.New(),
			Timestamp: now,
			Price:     newPrice,
			TaskID:    &id,
			Kind:      KindUncomplete,
			Delta:     delta,
		},
	}, nil
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func clampFloor(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
