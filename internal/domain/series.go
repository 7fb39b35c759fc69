package domain

import (
	"math"
	"sort"
	"time"
)

// Series is an immutable, date-ordered sequence of daily metrics.
// Dates are strictly increasing with no duplicates.
type Series struct {
	days []DailyMetric
}

// NewSeries validates days and returns a Series that owns a copy of them.
// Dates are normalized to UTC midnight before validation.
// Returns *MalformedSeriesError on ordering or value violations.
func NewSeries(days []DailyMetric) (Series, error) {
	out := make([]DailyMetric, len(days))
	for i, d := range days {
		d.Date = TruncateDay(d.Date)
		if d.ReferencePrice != nil {
			p := *d.ReferencePrice
			d.ReferencePrice = &p
		}
		if err := validateDay(i, d); err != nil {
			return Series{}, err
		}
		if i > 0 {
			prev := out[i-1].Date
			switch {
			case d.Date.Equal(prev):
				return Series{}, &MalformedSeriesError{Index: i, Date: d.Date, Prev: prev, Reason: "duplicate date"}
			case d.Date.Before(prev):
				return Series{}, &MalformedSeriesError{Index: i, Date: d.Date, Prev: prev, Reason: "dates not increasing"}
			}
		}
		out[i] = d
	}
	return Series{days: out}, nil
}

// SortedSeries sorts days by date and then validates them like NewSeries.
// Duplicates are still rejected.
func SortedSeries(days []DailyMetric) (Series, error) {
	cp := make([]DailyMetric, len(days))
	copy(cp, days)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].Date.Before(cp[j].Date)
	})
	return NewSeries(cp)
}

func validateDay(i int, d DailyMetric) error {
	bad := func(reason string) error {
		return &MalformedSeriesError{Index: i, Date: d.Date, Reason: reason}
	}
	switch {
	case d.Date.IsZero():
		return bad("missing date")
	case d.TxCount < 0:
		return bad("negative tx_count")
	case d.Volume < 0 || math.IsNaN(d.Volume) || math.IsInf(d.Volume, 0):
		return bad("invalid volume")
	case d.ExchangeInflow < 0 || math.IsNaN(d.ExchangeInflow) || math.IsInf(d.ExchangeInflow, 0):
		return bad("invalid exchange_inflow")
	case d.ExchangeOutflow < 0 || math.IsNaN(d.ExchangeOutflow) || math.IsInf(d.ExchangeOutflow, 0):
		return bad("invalid exchange_outflow")
	case d.ReferencePrice != nil && !(*d.ReferencePrice > 0) || d.ReferencePrice != nil && math.IsInf(*d.ReferencePrice, 0):
		return bad("reference_price must be positive")
	}
	return nil
}

// Len returns the number of days.
func (s Series) Len() int { return len(s.days) }

// At returns the i-th day.
func (s Series) At(i int) DailyMetric { return s.days[i] }

// Days returns a copy of the underlying days.
func (s Series) Days() []DailyMetric {
	out := make([]DailyMetric, len(s.days))
	copy(out, s.days)
	return out
}

// DateRange returns the first and last dates. Both are zero for an empty series.
func (s Series) DateRange() (time.Time, time.Time) {
	if len(s.days) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.days[0].Date, s.days[len(s.days)-1].Date
}

// Between returns the days in [start, end]. A zero bound is open.
func (s Series) Between(start, end time.Time) Series {
	lo, hi := 0, len(s.days)
	if !start.IsZero() {
		start = TruncateDay(start)
		lo = sort.Search(len(s.days), func(i int) bool {
			return !s.days[i].Date.Before(start)
		})
	}
	if !end.IsZero() {
		end = TruncateDay(end)
		hi = sort.Search(len(s.days), func(i int) bool {
			return s.days[i].Date.After(end)
		})
	}
	if lo >= hi {
		return Series{}
	}
	return Series{days: s.days[lo:hi:hi]}
}

// TotalFlows returns inflow + outflow per day.
func (s Series) TotalFlows() []float64 {
	return s.column(DailyMetric.TotalFlow)
}

// Prices returns reference prices; nil entries mark missing days.
func (s Series) Prices() []*float64 {
	out := make([]*float64, len(s.days))
	for i, d := range s.days {
		if d.ReferencePrice != nil {
			p := *d.ReferencePrice
			out[i] = &p
		}
	}
	return out
}

func (s Series) column(f func(DailyMetric) float64) []float64 {
	out := make([]float64, len(s.days))
	for i, d := range s.days {
		out[i] = f(d)
	}
	return out
}
