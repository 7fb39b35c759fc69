package analysis

import "fmt"

// LeadLagConfig parameterizes the lead-lag analysis.
type LeadLagConfig struct {
	MaxLag    int     `yaml:"max_lag"`
	MinPairs  int     `yaml:"min_pairs"`
	Threshold float64 `yaml:"threshold"` // |r| treated as significant
}

// RegimeConfig parameterizes regime clustering.
type RegimeConfig struct {
	K             int `yaml:"k"`
	MaxIterations int `yaml:"max_iterations"`
}

// VolatilityConfig parameterizes the conditional-volatility analysis.
type VolatilityConfig struct {
	HighPercentile float64 `yaml:"high_percentile"` // high_inflow / high_outflow cutoff
	LowPercentile  float64 `yaml:"low_percentile"`  // low_activity cutoff on total flow
}

// Config bundles the analysis suite parameters.
type Config struct {
	PriceWindow int              `yaml:"price_window"` // trailing price volatility window
	LeadLag     LeadLagConfig    `yaml:"lead_lag"`
	Regime      RegimeConfig     `yaml:"regime"`
	Volatility  VolatilityConfig `yaml:"volatility"`
}

// DefaultConfig returns the suite defaults.
func DefaultConfig() Config {
	return Config{
		PriceWindow: 7,
		LeadLag:     LeadLagConfig{MaxLag: 7, MinPairs: 20, Threshold: 0.1},
		Regime:      RegimeConfig{K: 4, MaxIterations: 100},
		Volatility:  VolatilityConfig{HighPercentile: 0.70, LowPercentile: 0.30},
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	switch {
	case c.PriceWindow < 2:
		return fmt.Errorf("analysis: price_window must be >= 2, got %d", c.PriceWindow)
	case c.LeadLag.MaxLag < 0:
		return fmt.Errorf("analysis: max_lag must be >= 0, got %d", c.LeadLag.MaxLag)
	case c.LeadLag.MinPairs < 2:
		return fmt.Errorf("analysis: min_pairs must be >= 2, got %d", c.LeadLag.MinPairs)
	case c.LeadLag.Threshold < 0 || c.LeadLag.Threshold > 1:
		return fmt.Errorf("analysis: threshold must be in [0,1], got %f", c.LeadLag.Threshold)
	case c.Regime.K < 1:
		return fmt.Errorf("analysis: k must be >= 1, got %d", c.Regime.K)
	case c.Regime.MaxIterations < 1:
		return fmt.Errorf("analysis: max_iterations must be >= 1, got %d", c.Regime.MaxIterations)
	case c.Volatility.HighPercentile <= 0 || c.Volatility.HighPercentile >= 1:
		return fmt.Errorf("analysis: high_percentile must be in (0,1), got %f", c.Volatility.HighPercentile)
	case c.Volatility.LowPercentile <= 0 || c.Volatility.LowPercentile >= 1:
		return fmt.Errorf("analysis: low_percentile must be in (0,1), got %f", c.Volatility.LowPercentile)
	}
	return nil
}
