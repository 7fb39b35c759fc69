// Package analysis implements the scientific analyses over an annotated
// series: lead-lag correlation, regime clustering, conditional volatility
// and the combined summary.
package analysis

import (
	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/stats"
)

// AnnotatePrices folds Return1D and PriceVolatility into a new series.
//
// Return1D(d) = p(d)/p(d-1) - 1 when both prices exist.
// PriceVolatility(d) = sample std / mean of the prices present in the
// trailing window; undefined with fewer than 2 prices.
func AnnotatePrices(in domain.AnnotatedSeries, window int) domain.AnnotatedSeries {
	out := in.Clone()
	buf := make([]float64, 0, window)
	for d := range out {
		out[d].Return1D = nil
		out[d].PriceVolatility = nil

		if d > 0 && out[d].ReferencePrice != nil && out[d-1].ReferencePrice != nil {
			r := *out[d].ReferencePrice / *out[d-1].ReferencePrice - 1
			out[d].Return1D = &r
		}

		lo := d - window + 1
		if lo < 0 {
			lo = 0
		}
		buf = buf[:0]
		for i := lo; i <= d; i++ {
			if p := out[i].ReferencePrice; p != nil {
				buf = append(buf, *p)
			}
		}
		if len(buf) >= 2 {
			v := stats.StdDev(buf) / stats.Mean(buf)
			out[d].PriceVolatility = &v
		}
	}
	return out
}

// forwardReturn returns the 1-day return realized after day d+offset,
// p(d+offset+1)/p(d+offset) - 1, which is Return1D at d+offset+1.
func forwardReturn(series domain.AnnotatedSeries, d, offset int) (float64, bool) {
	j := d + offset + 1
	if j < 0 || j >= len(series) || series[j].Return1D == nil {
		return 0, false
	}
	return *series[j].Return1D, true
}
