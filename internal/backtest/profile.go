package backtest

import (
	"time"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/stats"
)

// ClassProfile summarizes forward returns after days of one intent class.
type ClassProfile struct {
	Signal       domain.IntentSignal
	Days         int
	Evaluated    int
	MeanReturn   *float64 // nil when Evaluated is 0
	MedianReturn *float64
	PositivePct  *float64 // share of evaluated days with a positive return, percent
}

// ForwardProfile reports the raw horizon-day forward return after each
// intent class, independent of trade direction.
func ForwardProfile(series domain.AnnotatedSeries, horizon int) []ClassProfile {
	classes := []domain.IntentSignal{
		domain.IntentAccumulation,
		domain.IntentNeutral,
		domain.IntentSellingPressure,
	}
	byDate := make(map[time.Time]int, len(series))
	for i, d := range series {
		byDate[d.Date] = i
	}

	returns := make(map[domain.IntentSignal][]float64, len(classes))
	days := make(map[domain.IntentSignal]int, len(classes))
	for _, d := range series {
		days[d.IntentSignal]++
		j, ok := byDate[d.Date.AddDate(0, 0, horizon)]
		if !ok || d.ReferencePrice == nil || series[j].ReferencePrice == nil {
			continue
		}
		p0, p1 := *d.ReferencePrice, *series[j].ReferencePrice
		returns[d.IntentSignal] = append(returns[d.IntentSignal], (p1-p0)/p0)
	}

	out := make([]ClassProfile, 0, len(classes))
	for _, c := range classes {
		r := returns[c]
		p := ClassProfile{Signal: c, Days: days[c], Evaluated: len(r)}
		if len(r) > 0 {
			mean := stats.Mean(r)
			median := stats.Median(r)
			pos := 0
			for _, v := range r {
				if v > 0 {
					pos++
				}
			}
			pct := 100 * float64(pos) / float64(len(r))
			p.MeanReturn, p.MedianReturn, p.PositivePct = &mean, &median, &pct
		}
		out = append(out, p)
	}
	return out
}
