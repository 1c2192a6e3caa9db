package board

import "fmt"

// Column identifies one of the three board columns.
type Column string

const (
	ColumnTodo  Column = "todo"
	ColumnToday Column = "today"
	ColumnDone  Column = "done"
)

// Columns returns all columns in board order.
func Columns() []Column {
	return []Column{ColumnTodo, ColumnToday, ColumnDone}
}

// Valid reports whether c is one of the known columns.
func (c Column) Valid() bool {
	switch c {
	case ColumnTodo, ColumnToday, ColumnDone:
		return true
	}
	return false
}

// String returns the column name.
func (c Column) String() string {
	return string(c)
}

// ParseColumn converts a string to a Column.
func ParseColumn(s string) (Column, error) {
	c := Column(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown column %q (expected todo, today, or done)", s)
	}
	return c, nil
}

// Transition classifies a column move.
type Transition int

const (
	// TransitionNone means the target column equals the current column.
	// The move is rejected as a no-op, not an error.
	TransitionNone Transition = iota
	// TransitionMetadata is a move between todo and today. It changes
	// column membership only and has no price effect.
	TransitionMetadata
	// TransitionComplete is a move into the done column.
	TransitionComplete
	// TransitionUncomplete is a move out of the done column.
	TransitionUncomplete
)

// String returns a human-readable name for a transition.
func (tr Transition) String() string {
	switch tr {
	case TransitionNone:
		return "none"
	case TransitionMetadata:
		return "metadata"
	case TransitionComplete:
		return "complete"
	case TransitionUncomplete:
		return "uncomplete"
	default:
		return "unknown"
	}
}

// Classify determines what kind of transition moving from current to
// target represents. It is a total function of the column pair; the only
// interesting branch is whether the move crosses the done boundary.
func Classify(current, target Column) Transition {
	switch {
	case current == target:
		return TransitionNone
	case target == ColumnDone:
		return TransitionComplete
	case current == ColumnDone:
		return TransitionUncomplete
	default:
		return TransitionMetadata
	}
}
