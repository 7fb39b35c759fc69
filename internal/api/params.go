package api

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/service"
)

// Query parameter bounds.
const (
	MaxLimit   = 1000
	MaxLag     = 30
	MaxHorizon = 90
)

// validationError is reported as 400.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// parseDate reads an optional YYYY-MM-DD parameter; absent yields zero.
func parseDate(q url.Values, name string) (time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, invalid("invalid %s %q, expected YYYY-MM-DD", name, raw)
	}
	return t, nil
}

// parseRange reads start_date and end_date.
func parseRange(q url.Values) (service.Range, error) {
	start, err := parseDate(q, "start_date")
	if err != nil {
		return service.Range{}, err
	}
	end, err := parseDate(q, "end_date")
	if err != nil {
		return service.Range{}, err
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return service.Range{}, invalid("start_date %s is after end_date %s",
			domain.FormatDate(start), domain.FormatDate(end))
	}
	return service.Range{Start: start, End: end}, nil
}

// parseInt reads an optional integer in [lo, hi]; absent yields 0.
func parseInt(q url.Values, name string, lo, hi int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid("invalid %s %q, expected an integer", name, raw)
	}
	if v < lo || v > hi {
		return 0, invalid("%s must be between %d and %d, got %d", name, lo, hi, v)
	}
	return v, nil
}

func parseHistory(q url.Values) (service.HistoryQuery, error) {
	r, err := parseRange(q)
	if err != nil {
		return service.HistoryQuery{}, err
	}
	limit, err := parseInt(q, "limit", 1, MaxLimit)
	if err != nil {
		return service.HistoryQuery{}, err
	}
	return service.HistoryQuery{Range: r, Limit: limit}, nil
}
