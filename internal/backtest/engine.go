package backtest

import (
	"fmt"
	"time"

	"whale-index-lab/internal/domain"
)

// Signal is a named predicate over an annotated day. Bullish signals win
// on a positive forward return; bearish signals simulate a short and win
// on a negative one.
type Signal struct {
	Name      string
	Direction domain.Direction
	Fires     func(domain.AnnotatedDay) bool
}

// IntentAbove fires when the Intent Index is strictly above threshold.
func IntentAbove(name string, threshold int, dir domain.Direction) Signal {
	return Signal{
		Name:      name,
		Direction: dir,
		Fires:     func(d domain.AnnotatedDay) bool { return d.Intent > threshold },
	}
}

// IntentBelow fires when the Intent Index is strictly below threshold.
func IntentBelow(name string, threshold int, dir domain.Direction) Signal {
	return Signal{
		Name:      name,
		Direction: dir,
		Fires:     func(d domain.AnnotatedDay) bool { return d.Intent < threshold },
	}
}

// DefaultSignals returns the accumulation (intent > 70, bullish) and
// selling-pressure (intent < 30, bearish) signals.
func DefaultSignals() []Signal {
	return []Signal{
		IntentAbove(string(domain.IntentAccumulation), domain.IntentAccumulationOver, domain.Bullish),
		IntentBelow(string(domain.IntentSellingPressure), domain.IntentSellingBelow, domain.Bearish),
	}
}

// Config parameterizes the backtest.
type Config struct {
	Horizon             int     `yaml:"horizon"`              // forward horizon in calendar days
	AnnualizationFactor float64 `yaml:"annualization_factor"` // Sharpe multiplier
}

// DefaultConfig returns a 7-day horizon and an annualization factor of 1.
func DefaultConfig() Config {
	return Config{Horizon: 7, AnnualizationFactor: 1}
}

// Validate checks the horizon and factor.
func (c Config) Validate() error {
	if c.Horizon < 1 {
		return fmt.Errorf("backtest: horizon must be >= 1, got %d", c.Horizon)
	}
	if c.AnnualizationFactor <= 0 {
		return fmt.Errorf("backtest: annualization_factor must be > 0, got %f", c.AnnualizationFactor)
	}
	return nil
}

// Trade is one simulated position opened on a firing day.
type Trade struct {
	ID            string // deterministic, see idhash.ComputeTradeID
	EntryDate     time.Time
	ExitDate      time.Time
	EntryPrice    float64
	ExitPrice     float64
	ForwardReturn float64 // (exit-entry)/entry
	Return        float64 // ForwardReturn, negated for bearish signals
	Win           bool
}

// Results holds backtest output for one signal.
type Results struct {
	SignalName  string
	Direction   domain.Direction
	Horizon     int
	Range       domain.DateRange
	SignalCount int // days the predicate fired
	Excluded    int // firing days without an evaluable forward price
	Trades      []Trade

	// Metrics is nil when no trade could be evaluated; Err then carries
	// an *domain.InsufficientDataError.
	Metrics *Metrics
	Err     error
}
