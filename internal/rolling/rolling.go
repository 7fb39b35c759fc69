// Package rolling implements trailing-window statistics over daily columns.
//
// Every operator uses a truncated window: at position d the window covers
// values[max(0, d-n+1) .. d], so early positions see fewer observations
// and every statistic is defined from the first day.
package rolling

import (
	"fmt"
	"math"
	"sort"

	"whale-index-lab/internal/domain"
)

// NeutralRank is reported by PercentileRank for windows without spread.
const NeutralRank = 0.5

// RankTolerance is the relative tolerance under which PercentileRank treats
// two values as tied.
const RankTolerance = 1e-9

func tied(v, x float64) bool {
	return math.Abs(v-x) <= RankTolerance*math.Max(1, math.Abs(x))
}

// BaselineKind selects the rolling baseline estimator.
type BaselineKind string

const (
	BaselineMean        BaselineKind = "mean"
	BaselineMedian      BaselineKind = "median"
	BaselineExponential BaselineKind = "exponential"
)

// ParseBaselineKind validates a baseline kind name.
func ParseBaselineKind(s string) (BaselineKind, error) {
	switch k := BaselineKind(s); k {
	case BaselineMean, BaselineMedian, BaselineExponential:
		return k, nil
	default:
		return "", fmt.Errorf("unknown baseline kind %q", s)
	}
}

// Window is the number of trailing observations, current day included.
type Window int

// Start returns the first index of the truncated window ending at d.
func (w Window) Start(d int) int {
	lo := d - int(w) + 1
	if lo < 0 {
		return 0
	}
	return lo
}

// Validate rejects non-positive windows.
func (w Window) Validate() error {
	if w < 1 {
		return fmt.Errorf("window must be >= 1, got %d", w)
	}
	return nil
}

// Diagnostics counts positions where a documented fallback replaced the
// plain formula.
type Diagnostics struct {
	ZeroDenominators  int // ratio forced to 0
	DegenerateWindows int // percentile rank forced to NeutralRank
}

// Add accumulates other into d.
func (d *Diagnostics) Add(other Diagnostics) {
	d.ZeroDenominators += other.ZeroDenominators
	d.DegenerateWindows += other.DegenerateWindows
}

// Baseline computes the rolling baseline of values.
func Baseline(values []float64, w Window, kind BaselineKind) []float64 {
	switch kind {
	case BaselineMedian:
		return Median(values, w)
	case BaselineExponential:
		return Exponential(values, w)
	default:
		return Mean(values, w)
	}
}

// Mean computes the trailing arithmetic mean.
func Mean(values []float64, w Window) []float64 {
	out := make([]float64, len(values))
	for d := range values {
		win := values[w.Start(d) : d+1]
		sum := 0.0
		for _, v := range win {
			sum += v
		}
		out[d] = sum / float64(len(win))
	}
	return out
}

// Median computes the trailing median. Even-sized windows average the two
// middle values.
func Median(values []float64, w Window) []float64 {
	out := make([]float64, len(values))
	buf := make([]float64, 0, int(w))
	for d := range values {
		buf = append(buf[:0], values[w.Start(d):d+1]...)
		sort.Float64s(buf)
		m := len(buf) / 2
		if len(buf)%2 == 1 {
			out[d] = buf[m]
		} else {
			out[d] = (buf[m-1] + buf[m]) / 2
		}
	}
	return out
}

// Exponential computes the trailing exponentially weighted mean. The weight
// of lag k is (1-alpha)^k with alpha = 2/(n+1), normalized over the
// available window.
func Exponential(values []float64, w Window) []float64 {
	out := make([]float64, len(values))
	decay := 1 - 2/(float64(w)+1)
	for d := range values {
		lo := w.Start(d)
		num, den, weight := 0.0, 0.0, 1.0
		for i := d; i >= lo; i-- {
			num += weight * values[i]
			den += weight
			weight *= decay
		}
		out[d] = num / den
	}
	return out
}

// StdDev computes the trailing sample standard deviation (n-1 denominator).
// Windows with fewer than 2 observations yield 0.
func StdDev(values []float64, w Window) []float64 {
	out := make([]float64, len(values))
	for d := range values {
		win := values[w.Start(d) : d+1]
		if len(win) < 2 {
			continue
		}
		mean := 0.0
		for _, v := range win {
			mean += v
		}
		mean /= float64(len(win))
		sumSq := 0.0
		for _, v := range win {
			diff := v - mean
			sumSq += diff * diff
		}
		out[d] = math.Sqrt(sumSq / float64(len(win)-1))
	}
	return out
}

// PercentileRank computes |{x in window : x <= x_d}| / |window| per position.
// Values within RankTolerance of x_d count as ties, so rounding residue from
// the baselines does not manufacture a ranking. A window whose values are all
// tied with x_d (a single observation included) reports NeutralRank.
// Results are in (0, 1].
func PercentileRank(values []float64, w Window) ([]float64, Diagnostics) {
	var diag Diagnostics
	out := make([]float64, len(values))
	for d, x := range values {
		win := values[w.Start(d) : d+1]
		atOrBelow := 0
		flat := true
		for _, v := range win {
			same := tied(v, x)
			if v <= x || same {
				atOrBelow++
			}
			if !same {
				flat = false
			}
		}
		if flat {
			out[d] = NeutralRank
			diag.DegenerateWindows++
			continue
		}
		out[d] = float64(atOrBelow) / float64(len(win))
	}
	return out, diag
}

// EMA computes the recursive exponential moving average seeded with the
// first value: s0 = x0, st = alpha*xt + (1-alpha)*s(t-1), alpha = 2/(span+1).
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2 / (float64(span) + 1)
	out[0] = values[0]
	for t := 1; t < len(values); t++ {
		out[t] = alpha*values[t] + (1-alpha)*out[t-1]
	}
	return out
}

// Normalize divides values by baseline element-wise. A zero baseline yields 0.
func Normalize(values, baseline []float64) ([]float64, Diagnostics) {
	var diag Diagnostics
	out := make([]float64, len(values))
	for i, v := range values {
		if baseline[i] == 0 {
			diag.ZeroDenominators++
			continue
		}
		out[i] = v / baseline[i]
	}
	return out, diag
}

// Round rounds half to even.
func Round(v float64) int {
	return int(math.RoundToEven(v))
}

// Scale maps a (0,1] rank to an integer in [0,100].
func Scale(rank float64) int {
	return Round(100 * rank)
}

// ScaleAll applies Scale to every rank.
func ScaleAll(ranks []float64) []int {
	out := make([]int, len(ranks))
	for i, r := range ranks {
		out[i] = Scale(r)
	}
	return out
}

// SmoothInts applies EMA to an integer column and rounds each result.
func SmoothInts(values []int, span int) []int {
	f := make([]float64, len(values))
	for i, v := range values {
		f[i] = float64(v)
	}
	smoothed := EMA(f, span)
	out := make([]int, len(values))
	for i, v := range smoothed {
		out[i] = Round(v)
	}
	return out
}

// Warnings converts fallback counts into domain warnings for component.
func (d Diagnostics) Warnings(component string) []domain.Warning {
	var out []domain.Warning
	if d.ZeroDenominators > 0 {
		out = append(out, domain.Warning{
			Kind:      domain.WarningDegenerateComputation,
			Component: component,
			Message:   "zero denominator, ratio set to 0",
			Count:     d.ZeroDenominators,
		})
	}
	if d.DegenerateWindows > 0 {
		out = append(out, domain.Warning{
			Kind:      domain.WarningDegenerateComputation,
			Component: component,
			Message:   "percentile window without spread, neutral rank used",
			Count:     d.DegenerateWindows,
		})
	}
	return out
}
