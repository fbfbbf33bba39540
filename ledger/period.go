package ledger

import (
	"time"
)

// =============================================================================
// PERIOD - Inclusive reporting window
// =============================================================================

// Period is an inclusive [Start, End] window. A zero bound is open.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod builds a period covering whole days from the start of from to
// the last instant of to.
func NewPeriod(from, to time.Time) (Period, error) {
	p := Period{Start: StartOfDay(from), End: EndOfDay(to)}
	if p.End.Before(p.Start) {
		return Period{}, ErrInvalidPeriod
	}
	return p, nil
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Period{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	if !p.Start.IsZero() && t.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && t.After(p.End) {
		return false
	}
	return true
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
