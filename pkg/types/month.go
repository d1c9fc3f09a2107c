package types

import (
	"fmt"
	"time"
)

// MonthKey is a calendar-month period key in canonical "YYYY-MM" form.
// Lexicographic order equals chronological order, so MonthKeys can be
// sorted and compared as plain strings and used directly as map keys.
type MonthKey string

// MonthOf truncates a timestamp to its calendar month.
func MonthOf(t time.Time) MonthKey {
	return MonthKey(t.Format("2006-01"))
}

// ParseMonthKey validates a "YYYY-MM" string and returns it as a MonthKey.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return MonthOf(t), nil
}

// Time returns the first instant of the month in UTC.
func (m MonthKey) Time() (time.Time, error) {
	t, err := time.Parse("2006-01", string(m))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, string(m))
	}
	return t, nil
}

// String returns the canonical "YYYY-MM" label.
func (m MonthKey) String() string {
	return string(m)
}

// Before reports whether m precedes other chronologically.
func (m MonthKey) Before(other MonthKey) bool {
	return m < other
}
