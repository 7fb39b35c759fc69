package domain

import "time"

// IndexPoint is the persisted projection of one annotated day.
// Corresponds to index_points table in ClickHouse.
type IndexPoint struct {
	Date            time.Time
	Activity        int
	ActivityV1      int
	Intent          int
	IntentSignal    IntentSignal
	Momentum        float64
	MomentumSignal  MomentumSignal
	Confidence      float64
	ConfidenceLevel ConfidenceLevel
	WeightTx        float64
	WeightVolume    float64
	ComputedAtMs    int64 // Unix ms of the computation run
}

// ToIndexPoint projects an annotated day.
func ToIndexPoint(d AnnotatedDay, computedAtMs int64) IndexPoint {
	return IndexPoint{
		Date:            d.Date,
		Activity:        d.Activity,
		ActivityV1:      d.ActivityV1,
		Intent:          d.Intent,
		IntentSignal:    d.IntentSignal,
		Momentum:        d.Momentum,
		MomentumSignal:  d.MomentumSignal,
		Confidence:      d.Confidence,
		ConfidenceLevel: d.ConfidenceLevel,
		WeightTx:        d.WeightTx,
		WeightVolume:    d.WeightVolume,
		ComputedAtMs:    computedAtMs,
	}
}
