package domain

import "time"

// AnnotatedDay is a DailyMetric plus every derived column.
// Compositors fill their own fields and leave the rest untouched.
type AnnotatedDay struct {
	DailyMetric

	// Activity normalization
	NormTx     float64 // tx_count / baseline
	NormVolume float64 // volume / baseline

	// Activity v2 weighting
	VolatilityStd float64 // trailing std-dev of NormVolume
	VolatilityPct float64 // percentile rank of VolatilityStd
	WeightTx      float64
	WeightVolume  float64

	// Activity v2 index
	ActivityRaw    float64
	ActivityPct    float64
	ActivityScaled int
	Activity       int // smoothed, [0,100]

	// Activity v1 index
	ActivityV1Raw int // round(100*raw), unclipped
	ActivityV1    int // clipped to [0,300]

	// Intent index
	NetflowRatio float64 // (out-in)/(out+in), [-1,1]
	IntentNorm   float64 // (ratio+1)/2, [0,1]
	IntentPct    float64
	IntentScaled int
	Intent       int // smoothed, [0,100]
	IntentSignal IntentSignal

	// Derived signals
	Momentum        float64
	MomentumSignal  MomentumSignal
	Confidence      float64 // [0,100]
	ConfidenceLevel ConfidenceLevel

	// Price-derived
	Return1D        *float64 // p(d)/p(d-1) - 1
	PriceVolatility *float64 // trailing std/mean of price
}

// AnnotatedSeries is the typed per-day output of the compositors.
type AnnotatedSeries []AnnotatedDay

// Annotate lifts a Series into an AnnotatedSeries with no derived columns.
func Annotate(s Series) AnnotatedSeries {
	out := make(AnnotatedSeries, s.Len())
	for i := range out {
		out[i].DailyMetric = s.At(i)
	}
	return out
}

// Clone returns a copy that can be modified without touching a.
func (a AnnotatedSeries) Clone() AnnotatedSeries {
	out := make(AnnotatedSeries, len(a))
	copy(out, a)
	return out
}

// Column extracts one float column.
func (a AnnotatedSeries) Column(f func(AnnotatedDay) float64) []float64 {
	out := make([]float64, len(a))
	for i, d := range a {
		out[i] = f(d)
	}
	return out
}

// Between returns the days in [start, end]. A zero bound is open.
func (a AnnotatedSeries) Between(start, end time.Time) AnnotatedSeries {
	out := make(AnnotatedSeries, 0, len(a))
	for _, d := range a {
		if !start.IsZero() && d.Date.Before(TruncateDay(start)) {
			continue
		}
		if !end.IsZero() && d.Date.After(TruncateDay(end)) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// DateRange returns the first and last dates.
func (a AnnotatedSeries) DateRange() DateRange {
	if len(a) == 0 {
		return DateRange{}
	}
	return DateRange{Start: a[0].Date, End: a[len(a)-1].Date}
}

// Latest returns the last day.
func (a AnnotatedSeries) Latest() (AnnotatedDay, bool) {
	if len(a) == 0 {
		return AnnotatedDay{}, false
	}
	return a[len(a)-1], true
}

// Activities returns the smoothed activity column.
func (a AnnotatedSeries) Activities() []float64 {
	return a.Column(func(d AnnotatedDay) float64 { return float64(d.Activity) })
}

// Intents returns the smoothed intent column.
func (a AnnotatedSeries) Intents() []float64 {
	return a.Column(func(d AnnotatedDay) float64 { return float64(d.Intent) })
}

// DateRange is an inclusive calendar-day range attached to every report.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the inclusive number of calendar days covered.
func (r DateRange) Days() int {
	if r.Start.IsZero() || r.End.IsZero() {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}
