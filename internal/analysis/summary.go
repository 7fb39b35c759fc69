package analysis

import (
	"context"

	"golang.org/x/sync/errgroup"

	"whale-index-lab/internal/domain"
)

// ExecutiveSummary is the one-screen digest of the three analyses.
type ExecutiveSummary struct {
	InflowEffect         string // "bearish" or "not significant"
	OutflowEffect        string // "bullish" or "not significant"
	IntentPredictive     bool
	BestPredictor        string
	CurrentRegime        domain.RegimeLabel // empty when no day could be clustered
	HighInflowVolatility bool
}

// Summary aggregates lead-lag, regime and conditional-volatility reports.
type Summary struct {
	Range      domain.DateRange
	LeadLag    LeadLagReport
	Regimes    RegimeReport
	Volatility VolatilityReport
	Executive  ExecutiveSummary
	Warnings   []domain.Warning
}

// Summarize runs the three analyses concurrently over a series that
// already carries price annotations and combines them. It adds no
// computation beyond the executive digest.
func Summarize(ctx context.Context, series domain.AnnotatedSeries, cfg Config) (*Summary, error) {
	s := &Summary{Range: series.DateRange()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		s.LeadLag = LeadLag(series, cfg.LeadLag)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		s.Regimes = DetectRegimes(series, cfg.Regime)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		s.Volatility = ConditionalVolatility(series, cfg.Volatility)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.Warnings = append(s.Warnings, s.Regimes.Warnings...)
	s.Executive = executive(s)
	return s, nil
}

func executive(s *Summary) ExecutiveSummary {
	e := ExecutiveSummary{
		InflowEffect:         "not significant",
		OutflowEffect:        "not significant",
		IntentPredictive:     s.LeadLag.Findings.IntentPredictive,
		BestPredictor:        s.LeadLag.Findings.BestPredictor,
		HighInflowVolatility: s.Volatility.Findings.HighInflowIncreasesVolatility,
	}
	if s.LeadLag.Findings.InflowBearish {
		e.InflowEffect = "bearish"
	}
	if s.LeadLag.Findings.OutflowBullish {
		e.OutflowEffect = "bullish"
	}
	if s.Regimes.Current != nil {
		e.CurrentRegime = s.Regimes.Current.Label
	}
	return e
}
