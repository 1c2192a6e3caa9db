package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/charlieadamsdev/tasktickr/internal/board"
	"github.com/charlieadamsdev/tasktickr/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func completedTask(delta decimal.Decimal) board.Task {
	now := time.Now()
	return board.Task{
		ID:             uuid.New(),
		Title:          "t",
		Column:         board.ColumnDone,
		CreatedAt:      now,
		CompletedAt:    &now,
		LastPriceDelta: &delta,
	}
}

func TestOnComplete_FivePercent(t *testing.T) {
	calc := NewCalculator(DefaultBonusPercent)
	now := time.Now()

	change := calc.OnComplete(uuid.New(), dec("10.00"), now)

	if !change.NewPrice.Equal(dec("10.50")) {
		t.Errorf("NewPrice = %v, want 10.50", change.NewPrice)
	}
	if !change.Delta.Equal(dec("0.50")) {
		t.Errorf("Delta = %v, want 0.50", change.Delta)
	}
	if change.TaskDelta == nil || !change.TaskDelta.Equal(change.Delta) {
		t.Error("TaskDelta should carry the completion delta for the task record")
	}
	if change.Entry.Kind != KindCompletion {
		t.Errorf("Entry.Kind = %v, want %v", change.Entry.Kind, KindCompletion)
	}
	if !change.Entry.Price.Equal(change.NewPrice) {
		t.Error("Entry.Price should equal the committed price")
	}
}

// Scenario from the design: price 10.00, complete A, complete B, uncomplete A.
// The intermediate delta for B (0.525) stays unrounded; only committed
// prices round.
func TestCompleteCompleteUncomplete(t *testing.T) {
	calc := NewCalculator(DefaultBonusPercent)
	now := time.Now()

	a := calc.OnComplete(uuid.New(), dec("10.00"), now)
	if !a.NewPrice.Equal(dec("10.50")) {
		t.Fatalf("after completing A: price = %v, want 10.50", a.NewPrice)
	}

	b := calc.OnComplete(uuid.New(), a.NewPrice, now)
	if !b.Delta.Equal(dec("0.525")) {
		t.Errorf("B delta = %v, want unrounded 0.525", b.Delta)
	}
	if !b.NewPrice.Equal(dec("11.03")) {
		t.Errorf("after completing B: price = %v, want 11.03", b.NewPrice)
	}

	taskA := completedTask(*a.TaskDelta)
	rev, err := calc.OnUncomplete(taskA, b.NewPrice, now)
	if err != nil {
		t.Fatalf("OnUncomplete: %v", err)
	}
	if !rev.NewPrice.Equal(dec("10.53")) {
		t.Errorf("after uncompleting A: price = %v, want 10.53", rev.NewPrice)
	}
	if !rev.Delta.Equal(dec("-0.50")) {
		t.Errorf("reversal delta = %v, want -0.50", rev.Delta)
	}
	if rev.TaskDelta != nil {
		t.Error("uncompletion must clear the task's recorded delta")
	}
	if rev.Entry.Kind != KindUncomplete {
		t.Errorf("Entry.Kind = %v, want %v", rev.Entry.Kind, KindUncomplete)
	}
}

func TestCompleteUncomplete_ExactlyReversible(t *testing.T) {
	calc := NewCalculator(DefaultBonusPercent)
	now := time.Now()
	start := dec("37.81")

	price := start
	for i := 0; i < 10; i++ {
		change := calc.OnComplete(uuid.New(), price, now)
		task := completedTask(*change.TaskDelta)
		rev, err := calc.OnUncomplete(task, change.NewPrice, now)
		if err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		price = rev.NewPrice
	}

	// Each cycle may drift by at most the rounding tolerance.
	if price.Sub(start).Abs().GreaterThan(dec("0.01")) {
		t.Errorf("price drifted from %v to %v after complete/uncomplete cycles", start, price)
	}
}

func TestOnComplete_OrderCommutativeInFinalPrice(t *testing.T) {
	calc := NewCalculator(DefaultBonusPercent)
	now := time.Now()
	idA, idB := uuid.New(), uuid.New()

	ab1 := calc.OnComplete(idA, dec("20.00"), now)
	ab2 := calc.OnComplete(idB, ab1.NewPrice, now)

	ba1 := calc.OnComplete(idB, dec("20.00"), now)
	ba2 := calc.OnComplete(idA, ba1.NewPrice, now)

	if !ab2.NewPrice.Equal(ba2.NewPrice) {
		t.Errorf("final price depends on completion order: %v vs %v", ab2.NewPrice, ba2.NewPrice)
	}
	// Intermediate entries differ: the first entry records the first task.
	if ab1.Entry.TaskID == nil || *ab1.Entry.TaskID != idA {
		t.Error("first entry in A-then-B order should record task A")
	}
	if ba1.Entry.TaskID == nil || *ba1.Entry.TaskID != idB {
		t.Error("first entry in B-then-A order should record task B")
	}
}

func TestOnUncomplete_MissingDelta(t *testing.T) {
	calc := NewCalculator(DefaultBonusPercent)
	task := completedTask(dec("1"))
	task.LastPriceDelta = nil

	_, err := calc.OnUncomplete(task, dec("10.00"), time.Now())
	if !errors.Is(err, errors.ErrMissingDelta) {
		t.Fatalf("expected MissingDeltaError, got %v", err)
	}
}

func TestOnUncomplete_FloorClamp(t *testing.T) {
	calc := NewCalculator(DefaultBonusPercent)
	task := completedTask(dec("5.00"))

	change, err := calc.OnUncomplete(task, dec("3.00"), time.Now())
	if err != nil {
		t.Fatalf("OnUncomplete: %v", err)
	}
	if !change.NewPrice.Equal(decimal.Zero) {
		t.Errorf("NewPrice = %v, want clamp to 0", change.NewPrice)
	}
	if !change.Entry.Price.Equal(decimal.Zero) {
		t.Errorf("Entry.Price = %v, want clamped 0", change.Entry.Price)
	}
	// The audit trail keeps the unclamped intent.
	if !change.Entry.Delta.Equal(dec("-5.00")) {
		t.Errorf("Entry.Delta = %v, want -5.00", change.Entry.Delta)
	}
}

func TestPriceNeverNegative(t *testing.T) {
	calc := NewCalculator(DefaultBonusPercent)
	now := time.Now()
	price := dec("0.10")

	// Alternate completions and over-large reversals.
	for i := 0; i < 20; i++ {
		change := calc.OnComplete(uuid.New(), price, now)
		price = change.NewPrice
		big := price.Add(dec("1"))
		task := completedTask(big)
		rev, err := calc.OnUncomplete(task, price, now)
		if err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		price = rev.NewPrice
		if price.IsNegative() {
			t.Fatalf("price went negative: %v", price)
		}
	}
}

func TestNewCalculator_ZeroBonusDefaults(t *testing.T) {
	calc := NewCalculator(decimal.Zero)
	change := calc.OnComplete(uuid.New(), dec("10.00"), time.Now())
	if !change.Delta.Equal(dec("0.50")) {
		t.Errorf("zero bonus should fall back to 5%%, got delta %v", change.Delta)
	}
}

func TestWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		window Window
		want   time.Time
	}{
		{WindowDay, now.AddDate(0, 0, -1)},
		{WindowWeek, now.AddDate(0, 0, -7)},
		{WindowMonth, now.AddDate(0, -1, 0)},
		{Window("bogus"), now.AddDate(0, 0, -1)},
	}

	for _, tt := range tests {
		t.Run(string(tt.window), func(t *testing.T) {
			if got := tt.window.Start(now); !got.Equal(tt.want) {
				t.Errorf("Start = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := ParseWindow("1y"); err == nil {
		t.Error("ParseWindow(\"1y\") should fail")
	}
	if w, err := ParseWindow("1w"); err != nil || w != WindowWeek {
		t.Errorf("ParseWindow(\"1w\") = %v, %v", w, err)
	}
}

func TestHistoryPoints(t *testing.T) {
	now := time.Now()
	entries := []Entry{
		{Timestamp: now, Price: dec("10.5"), Kind: KindCompletion, Delta: dec("0.5")},
		{Timestamp: now.Add(time.Minute), Price: dec("11.03"), Kind: KindCompletion, Delta: dec("0.525")},
	}

	points := HistoryPoints(entries)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Price != "10.50" {
		t.Errorf("price should format to 2 places, got %q", points[0].Price)
	}
}
