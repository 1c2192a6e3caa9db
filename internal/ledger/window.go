package ledger

import (
	"fmt"
	"time"
)

// Window is a time range for price history queries.
type Window string

const (
	WindowDay   Window = "1d"
	WindowWeek  Window = "1w"
	WindowMonth Window = "1m"
)

// ParseWindow converts a string to a Window.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case WindowDay, WindowWeek, WindowMonth:
		return Window(s), nil
	}
	return "", fmt.Errorf("unknown window %q (expected 1d, 1w, or 1m)", s)
}

// Start returns the beginning of the window relative to now. An unknown
// window falls back to one day, matching the original chart behavior.
func (w Window) Start(now time.Time) time.Time {
	switch w {
	case WindowWeek:
		return now.AddDate(0, 0, -7)
	case WindowMonth:
		return now.AddDate(0, -1, 0)
	default:
		return now.AddDate(0, 0, -1)
	}
}

// Point is one sample on the price history curve.
type Point struct {
	Timestamp time.Time
	Price     string // Formatted to 2 decimal places
}

// HistoryPoints projects ledger entries onto chartable points. Entries
// are assumed ascending by time, as QueryLedger returns them.
func HistoryPoints(entries []Entry) []Point {
	points := make([]Point, 0, len(entries))
	for _, e := range entries {
		points = append(points, Point{
			Timestamp: e.Timestamp,
			Price:     e.Price.StringFixed(2),
		})
	}
	return points
}
