package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedSeries is the sentinel wrapped by every MalformedSeriesError.
var ErrMalformedSeries = errors.New("malformed series")

// ErrInsufficientData is the sentinel wrapped by every InsufficientDataError.
var ErrInsufficientData = errors.New("insufficient data")

// MalformedSeriesError reports a series that violates the ordering or
// value invariants. It is fatal for the whole pipeline call.
type MalformedSeriesError struct {
	Index  int       // position of the offending day
	Date   time.Time // date at Index
	Prev   time.Time // date at Index-1, zero for value errors
	Reason string
}

func (e *MalformedSeriesError) Error() string {
	if e.Prev.IsZero() {
		return fmt.Sprintf("malformed series at index %d (%s): %s",
			e.Index, FormatDate(e.Date), e.Reason)
	}
	return fmt.Sprintf("malformed series at index %d: %s after %s: %s",
		e.Index, FormatDate(e.Date), FormatDate(e.Prev), e.Reason)
}

func (e *MalformedSeriesError) Unwrap() error { return ErrMalformedSeries }

// InsufficientDataError reports a metric whose minimum sample requirement
// was not met. The metric is reported absent; other metrics still compute.
type InsufficientDataError struct {
	Metric    string
	Required  int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d, have %d",
		e.Metric, e.Required, e.Available)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// WarningKind classifies non-fatal conditions.
type WarningKind string

const (
	WarningDegenerateComputation    WarningKind = "degenerate_computation"
	WarningClusteringNonConvergence WarningKind = "clustering_non_convergence"
)

// Warning is a non-fatal condition absorbed by a documented fallback.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	Component string      `json:"component"`
	Message   string      `json:"message"`
	Count     int         `json:"count"` // affected days, 0 when not per-day
}

func (w Warning) String() string {
	if w.Count > 0 {
		return fmt.Sprintf("%s [%s]: %s (%d days)", w.Kind, w.Component, w.Message, w.Count)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Kind, w.Component, w.Message)
}
