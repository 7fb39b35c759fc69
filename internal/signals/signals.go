// Package signals derives momentum and confidence from the composite indices.
package signals

import (
	"fmt"
	"math"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/rolling"
)

// Config parameterizes momentum and confidence.
type Config struct {
	MomentumWindow   int `yaml:"momentum_window"`
	PercentileWindow int `yaml:"percentile_window"`
	StabilityWindow  int `yaml:"stability_window"`

	TxWeight        float64 `yaml:"tx_weight"`
	ExchangeWeight  float64 `yaml:"exchange_weight"`
	StabilityWeight float64 `yaml:"stability_weight"`
}

// DefaultConfig returns a 7-day momentum window, 30-day percentile
// history, 7-day stability window and 0.4/0.3/0.3 confidence weights.
func DefaultConfig() Config {
	return Config{
		MomentumWindow:   7,
		PercentileWindow: 30,
		StabilityWindow:  7,
		TxWeight:         0.4,
		ExchangeWeight:   0.3,
		StabilityWeight:  0.3,
	}
}

// Validate checks windows and that the confidence weights sum to 1.
func (c Config) Validate() error {
	for _, w := range []struct {
		name string
		size int
	}{
		{"momentum_window", c.MomentumWindow},
		{"percentile_window", c.PercentileWindow},
		{"stability_window", c.StabilityWindow},
	} {
		if err := rolling.Window(w.size).Validate(); err != nil {
			return fmt.Errorf("signals: %s: %w", w.name, err)
		}
	}
	for _, w := range []float64{c.TxWeight, c.ExchangeWeight, c.StabilityWeight} {
		if w < 0 {
			return fmt.Errorf("signals: confidence weights must be non-negative")
		}
	}
	if sum := c.TxWeight + c.ExchangeWeight + c.StabilityWeight; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("signals: confidence weights must sum to 1, got %f", sum)
	}
	return nil
}

// Result is the calculator output.
type Result struct {
	Series   domain.AnnotatedSeries
	Warnings []domain.Warning
}

// Momentum folds activity momentum into a new series:
// activity(d) - mean(activity over the trailing window).
// Requires the Activity column.
func Momentum(in domain.AnnotatedSeries, cfg Config) Result {
	out := in.Clone()
	activity := out.Activities()
	trailing := rolling.Mean(activity, rolling.Window(cfg.MomentumWindow))
	for d := range out {
		m := activity[d] - trailing[d]
		out[d].Momentum = m
		out[d].MomentumSignal = domain.ClassifyMomentum(m)
	}
	return Result{Series: out}
}

// Confidence folds the confidence score into a new series:
//
//	100 * (w_tx*PR(tx_count) + w_ex*PR(inflow+outflow) + w_st*(1 - PR(std(activity))))
//
// Requires the Activity column.
func Confidence(in domain.AnnotatedSeries, cfg Config) Result {
	out := in.Clone()
	if len(out) == 0 {
		return Result{Series: out}
	}
	w := rolling.Window(cfg.PercentileWindow)
	var diag rolling.Diagnostics

	tx := out.Column(func(d domain.AnnotatedDay) float64 { return float64(d.TxCount) })
	flow := out.Column(func(d domain.AnnotatedDay) float64 { return d.TotalFlow() })
	spread := rolling.StdDev(out.Activities(), rolling.Window(cfg.StabilityWindow))

	fTx, d1 := rolling.PercentileRank(tx, w)
	fEx, d2 := rolling.PercentileRank(flow, w)
	fSpread, d3 := rolling.PercentileRank(spread, w)
	diag.Add(d1)
	diag.Add(d2)
	diag.Add(d3)

	for d := range out {
		score := 100 * (cfg.TxWeight*fTx[d] + cfg.ExchangeWeight*fEx[d] + cfg.StabilityWeight*(1-fSpread[d]))
		out[d].Confidence = score
		out[d].ConfidenceLevel = domain.ClassifyConfidence(score)
	}
	return Result{Series: out, Warnings: diag.Warnings("confidence")}
}
