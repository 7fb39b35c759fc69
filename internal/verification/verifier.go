// Package verification recomputes a stored index run from its daily
// metrics and reports every field that diverges.
package verification

import (
	"math"
	"time"

	"whale-index-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string // field name
	Expected any    // stored value
	Actual   any    // replayed value
}

// DayResult contains the result of verifying one stored day.
type DayResult struct {
	Date        time.Time
	Match       bool
	Divergences []FieldDivergence
}

// Report contains results for one verified run.
type Report struct {
	ComputedAtMs  int64 // run that was verified
	DataVersion   string
	TotalDays     int // stored points in the run
	MatchedDays   int
	DivergentDays int
	Results       []DayResult // divergent days only
}

// OK reports whether every stored point matched its recomputation.
func (r *Report) OK() bool {
	return r.DivergentDays == 0
}

// ComparePoints compares a stored point with its recomputation.
// Integer indices and labels must match exactly; floats within FloatTolerance.
func ComparePoints(stored, replayed domain.IndexPoint) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, expected, actual any) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	if !stored.Date.Equal(replayed.Date) {
		add("Date", domain.FormatDate(stored.Date), domain.FormatDate(replayed.Date))
	}

	// Index values
	if stored.Activity != replayed.Activity {
		add("Activity", stored.Activity, replayed.Activity)
	}
	if stored.ActivityV1 != replayed.ActivityV1 {
		add("ActivityV1", stored.ActivityV1, replayed.ActivityV1)
	}
	if stored.Intent != replayed.Intent {
		add("Intent", stored.Intent, replayed.Intent)
	}
	if stored.IntentSignal != replayed.IntentSignal {
		add("IntentSignal", stored.IntentSignal, replayed.IntentSignal)
	}

	// Derived signals
	if !floatEquals(stored.Momentum, replayed.Momentum) {
		add("Momentum", stored.Momentum, replayed.Momentum)
	}
	if stored.MomentumSignal != replayed.MomentumSignal {
		add("MomentumSignal", stored.MomentumSignal, replayed.MomentumSignal)
	}
	if !floatEquals(stored.Confidence, replayed.Confidence) {
		add("Confidence", stored.Confidence, replayed.Confidence)
	}
	if stored.ConfidenceLevel != replayed.ConfidenceLevel {
		add("ConfidenceLevel", stored.ConfidenceLevel, replayed.ConfidenceLevel)
	}

	// Weights
	if !floatEquals(stored.WeightTx, replayed.WeightTx) {
		add("WeightTx", stored.WeightTx, replayed.WeightTx)
	}
	if !floatEquals(stored.WeightVolume, replayed.WeightVolume) {
		add("WeightVolume", stored.WeightVolume, replayed.WeightVolume)
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
