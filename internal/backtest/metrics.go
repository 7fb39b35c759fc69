package backtest

import (
	"whale-index-lab/internal/stats"
)

// Metrics aggregates the trades of one signal.
type Metrics struct {
	TotalTrades int
	Wins        int
	Losses      int
	WinRate     float64 // percent, 0..100

	ReturnMean    float64
	ReturnMedian  float64
	ReturnP10     float64
	ReturnP90     float64
	ReturnMin     float64
	ReturnMax     float64
	ReturnStddev  float64
	ForwardMean   float64 // mean raw forward return, before direction
	MaxDrawdown   float64 // on the cumulative trade-return curve
	Sharpe        float64 // mean/stddev * annualization factor; 0 when stddev is 0
	MaxLossStreak int
}

// computeMetrics calculates all metrics from trades in chronological order.
func computeMetrics(trades []Trade, annualization float64) *Metrics {
	n := len(trades)
	returns := make([]float64, n)
	forward := make([]float64, n)
	wins := 0
	for i, t := range trades {
		returns[i] = t.Return
		forward[i] = t.ForwardReturn
		if t.Win {
			wins++
		}
	}

	sorted := stats.Sorted(returns)
	mean := stats.Mean(returns)
	stddev := stats.StdDev(returns)

	m := &Metrics{
		TotalTrades:   n,
		Wins:          wins,
		Losses:        n - wins,
		WinRate:       100 * float64(wins) / float64(n),
		ReturnMean:    mean,
		ReturnMedian:  stats.Percentile(sorted, 0.50),
		ReturnP10:     stats.Percentile(sorted, 0.10),
		ReturnP90:     stats.Percentile(sorted, 0.90),
		ReturnMin:     sorted[0],
		ReturnMax:     sorted[n-1],
		ReturnStddev:  stddev,
		ForwardMean:   stats.Mean(forward),
		MaxDrawdown:   stats.MaxDrawdown(returns),
		MaxLossStreak: stats.MaxConsecutive(returns, func(r float64) bool { return r <= 0 }),
	}
	if stddev > 0 {
		m.Sharpe = mean / stddev * annualization
	}
	return m
}
