// Package intent computes the whale Intent Index from exchange flows.
package intent

import (
	"fmt"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/rolling"
)

const component = "intent"

// Config parameterizes the Intent Index.
type Config struct {
	HistoryWindow int `yaml:"history_window"`
	SmoothingSpan int `yaml:"smoothing_span"`
}

// DefaultConfig returns a 180-day percentile window and span 7.
func DefaultConfig() Config {
	return Config{HistoryWindow: 180, SmoothingSpan: 7}
}

// Validate checks window lengths.
func (c Config) Validate() error {
	if err := rolling.Window(c.HistoryWindow).Validate(); err != nil {
		return fmt.Errorf("intent: history_window: %w", err)
	}
	if c.SmoothingSpan < 1 {
		return fmt.Errorf("intent: smoothing_span must be >= 1, got %d", c.SmoothingSpan)
	}
	return nil
}

// Result is the compositor output.
type Result struct {
	Series   domain.AnnotatedSeries
	Warnings []domain.Warning
}

// NetflowRatio returns (out-in)/(out+in), or 0 when both flows are 0.
func NetflowRatio(inflow, outflow float64) float64 {
	total := inflow + outflow
	if total == 0 {
		return 0
	}
	return (outflow - inflow) / total
}

// Compute folds the Intent Index into a new series.
//
//	norm   = (netflow_ratio + 1) / 2
//	scaled = round(100 * PR(norm, W_hist))
//	intent = round(EMA(scaled, span))
func Compute(in domain.AnnotatedSeries, cfg Config) Result {
	out := in.Clone()
	if len(out) == 0 {
		return Result{Series: out}
	}

	var diag rolling.Diagnostics
	norm := make([]float64, len(out))
	for d := range out {
		if out[d].TotalFlow() == 0 {
			diag.ZeroDenominators++
		}
		ratio := NetflowRatio(out[d].ExchangeInflow, out[d].ExchangeOutflow)
		out[d].NetflowRatio = ratio
		norm[d] = (ratio + 1) / 2
		out[d].IntentNorm = norm[d]
	}

	pct, dPct := rolling.PercentileRank(norm, rolling.Window(cfg.HistoryWindow))
	diag.Add(dPct)
	scaled := rolling.ScaleAll(pct)
	smoothed := rolling.SmoothInts(scaled, cfg.SmoothingSpan)

	for d := range out {
		out[d].IntentPct = pct[d]
		out[d].IntentScaled = scaled[d]
		out[d].Intent = smoothed[d]
		out[d].IntentSignal = domain.ClassifyIntent(smoothed[d])
	}

	return Result{Series: out, Warnings: diag.Warnings(component)}
}
