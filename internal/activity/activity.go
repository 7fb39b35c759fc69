// Package activity computes the whale Activity Index.
//
// Two variants share the baseline normalization step:
//   - static (v1): fixed 50/50 weights, unscaled, kept for comparison
//   - adaptive (v2): volatility-driven weights, percentile rescaling, EMA smoothing
package activity

import (
	"fmt"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/rolling"
)

const component = "activity"

// Config parameterizes the adaptive index.
type Config struct {
	BaselineWindow   int                  `yaml:"baseline_window"`
	BaselineKind     rolling.BaselineKind `yaml:"baseline_kind"`
	VolatilityWindow int                  `yaml:"volatility_window"` // 0 means BaselineWindow
	HistoryWindow    int                  `yaml:"history_window"`
	SmoothingSpan    int                  `yaml:"smoothing_span"`
}

// StaticConfig parameterizes the static index.
type StaticConfig struct {
	BaselineWindow int                  `yaml:"baseline_window"`
	BaselineKind   rolling.BaselineKind `yaml:"baseline_kind"`
	ClipMax        int                  `yaml:"clip_max"`
}

// DefaultConfig returns adaptive defaults: median baseline over 50 days,
// 180-day percentile history, span 7.
func DefaultConfig() Config {
	return Config{
		BaselineWindow: 50,
		BaselineKind:   rolling.BaselineMedian,
		HistoryWindow:  180,
		SmoothingSpan:  7,
	}
}

// DefaultStaticConfig returns static defaults: mean baseline over 30 days,
// clipped to [0,300].
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		BaselineWindow: 30,
		BaselineKind:   rolling.BaselineMean,
		ClipMax:        300,
	}
}

// Validate checks window lengths and baseline kind.
func (c Config) Validate() error {
	if err := rolling.Window(c.BaselineWindow).Validate(); err != nil {
		return fmt.Errorf("activity: baseline_window: %w", err)
	}
	if c.VolatilityWindow < 0 {
		return fmt.Errorf("activity: volatility_window must be >= 0, got %d", c.VolatilityWindow)
	}
	if err := rolling.Window(c.HistoryWindow).Validate(); err != nil {
		return fmt.Errorf("activity: history_window: %w", err)
	}
	if c.SmoothingSpan < 1 {
		return fmt.Errorf("activity: smoothing_span must be >= 1, got %d", c.SmoothingSpan)
	}
	if _, err := rolling.ParseBaselineKind(string(c.BaselineKind)); err != nil {
		return fmt.Errorf("activity: %w", err)
	}
	return nil
}

// EffectiveVolatilityWindow resolves a zero VolatilityWindow to BaselineWindow.
func (c Config) EffectiveVolatilityWindow() rolling.Window {
	if c.VolatilityWindow == 0 {
		return rolling.Window(c.BaselineWindow)
	}
	return rolling.Window(c.VolatilityWindow)
}

// Validate checks the static parameters.
func (c StaticConfig) Validate() error {
	if err := rolling.Window(c.BaselineWindow).Validate(); err != nil {
		return fmt.Errorf("activity v1: baseline_window: %w", err)
	}
	if c.ClipMax < 0 {
		return fmt.Errorf("activity v1: clip_max must be >= 0, got %d", c.ClipMax)
	}
	if _, err := rolling.ParseBaselineKind(string(c.BaselineKind)); err != nil {
		return fmt.Errorf("activity v1: %w", err)
	}
	return nil
}

// Result is the compositor output.
type Result struct {
	Series   domain.AnnotatedSeries
	Warnings []domain.Warning
}

// normalize divides tx_count and volume by their rolling baselines.
func normalize(in domain.AnnotatedSeries, w rolling.Window, kind rolling.BaselineKind) ([]float64, []float64, rolling.Diagnostics) {
	var diag rolling.Diagnostics
	tx := in.Column(func(d domain.AnnotatedDay) float64 { return float64(d.TxCount) })
	vol := in.Column(func(d domain.AnnotatedDay) float64 { return d.Volume })

	normTx, dtx := rolling.Normalize(tx, rolling.Baseline(tx, w, kind))
	normVol, dvol := rolling.Normalize(vol, rolling.Baseline(vol, w, kind))
	diag.Add(dtx)
	diag.Add(dvol)
	return normTx, normVol, diag
}

// ComputeAdaptive folds the adaptive (v2) Activity Index into a new series.
//
//	sigma  = StdDev(N_vol, W_vol)
//	rho    = PR(sigma, W_vol); w_vol = rho; w_tx = 1 - rho
//	raw    = w_tx*N_tx + w_vol*N_vol
//	scaled = round(100 * PR(raw, W_hist))
//	index  = round(EMA(scaled, span))
func ComputeAdaptive(in domain.AnnotatedSeries, cfg Config) Result {
	out := in.Clone()
	if len(out) == 0 {
		return Result{Series: out}
	}

	normTx, normVol, diag := normalize(out, rolling.Window(cfg.BaselineWindow), cfg.BaselineKind)

	volWindow := cfg.EffectiveVolatilityWindow()
	sigma := rolling.StdDev(normVol, volWindow)
	rho, dRho := rolling.PercentileRank(sigma, volWindow)
	diag.Add(dRho)

	raw := make([]float64, len(out))
	for d := range out {
		wVol := rho[d]
		wTx := 1 - wVol
		raw[d] = wTx*normTx[d] + wVol*normVol[d]

		out[d].NormTx = normTx[d]
		out[d].NormVolume = normVol[d]
		out[d].VolatilityStd = sigma[d]
		out[d].VolatilityPct = rho[d]
		out[d].WeightTx = wTx
		out[d].WeightVolume = wVol
		out[d].ActivityRaw = raw[d]
	}

	pct, dPct := rolling.PercentileRank(raw, rolling.Window(cfg.HistoryWindow))
	diag.Add(dPct)
	scaled := rolling.ScaleAll(pct)
	smoothed := rolling.SmoothInts(scaled, cfg.SmoothingSpan)

	for d := range out {
		out[d].ActivityPct = pct[d]
		out[d].ActivityScaled = scaled[d]
		out[d].Activity = smoothed[d]
	}

	return Result{Series: out, Warnings: diag.Warnings(component)}
}

// ComputeStatic folds the static (v1) Activity Index into a new series.
// ActivityV1Raw keeps round(100*raw) unclipped; ActivityV1 is clipped to
// [0, ClipMax].
func ComputeStatic(in domain.AnnotatedSeries, cfg StaticConfig) Result {
	out := in.Clone()
	if len(out) == 0 {
		return Result{Series: out}
	}

	normTx, normVol, diag := normalize(out, rolling.Window(cfg.BaselineWindow), cfg.BaselineKind)
	for d := range out {
		idx := rolling.Round(100 * (0.5*normTx[d] + 0.5*normVol[d]))
		out[d].ActivityV1Raw = idx
		out[d].ActivityV1 = clip(idx, 0, cfg.ClipMax)
	}

	return Result{Series: out, Warnings: diag.Warnings(component + "_v1")}
}

func clip(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
