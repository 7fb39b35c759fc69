package storage

import "time"

// InDateRange reports whether day lies in [start, end]. A zero bound is open.
func InDateRange(day, start, end time.Time) bool {
	if !start.IsZero() && day.Before(start) {
		return false
	}
	if !end.IsZero() && day.After(end) {
		return false
	}
	return true
}
