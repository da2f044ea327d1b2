package types

import (
	"time"
)

// DaysOverdue returns the number of whole calendar days by which an
// obligation is overdue, clamped to zero. Both instants are truncated
// to UTC dates before differencing so time-of-day never shifts the
// penalty regime.
func DaysOverdue(effective, due time.Time) int {
	days := int(dateOnly(effective).Sub(dateOnly(due)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// MonthsOverdue converts an overdue day count into elapsed months on a
// 30-day month convention. A partial month counts as one full month.
func MonthsOverdue(days int) int {
	if days <= 0 {
		return 0
	}
	return (days + 29) / 30
}

func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
