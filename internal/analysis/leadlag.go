package analysis

import (
	"fmt"
	"math"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/stats"
)

// Candidate series names used by the lead-lag analysis.
const (
	SeriesInflow   = "exchange_inflow"
	SeriesOutflow  = "exchange_outflow"
	SeriesNetflow  = "netflow"
	SeriesIntent   = "intent_index"
	SeriesActivity = "activity_index"
)

type leadSeries struct {
	name  string
	value func(domain.AnnotatedDay) float64
}

var leadLagCandidates = []leadSeries{
	{SeriesInflow, func(d domain.AnnotatedDay) float64 { return d.ExchangeInflow }},
	{SeriesOutflow, func(d domain.AnnotatedDay) float64 { return d.ExchangeOutflow }},
	{SeriesNetflow, func(d domain.AnnotatedDay) float64 { return d.Netflow() }},
	{SeriesIntent, func(d domain.AnnotatedDay) float64 { return float64(d.Intent) }},
	{SeriesActivity, func(d domain.AnnotatedDay) float64 { return float64(d.Activity) }},
}

// LagCorrelation is the correlation at one lag. Correlation is nil below
// the minimum pair count or when either side has no variance.
type LagCorrelation struct {
	Lag         int
	Pairs       int
	Correlation *float64
}

// SeriesLeadLag is the lag profile of one candidate series against the
// 1-day return.
type SeriesLeadLag struct {
	Series          string
	Lags            []LagCorrelation
	BestLag         *int
	BestCorrelation *float64
	Interpretation  string
	Err             error // *domain.InsufficientDataError when no lag is defined
}

// LeadLagFindings condenses the profiles into qualitative findings.
type LeadLagFindings struct {
	InflowBearish    bool
	OutflowBullish   bool
	IntentPredictive bool
	BestPredictor    string // empty when no series has a defined correlation
}

// LeadLagReport is the lead-lag analysis output.
type LeadLagReport struct {
	Range    domain.DateRange
	MaxLag   int
	MinPairs int
	Series   []SeriesLeadLag
	Findings LeadLagFindings
}

// Get returns the profile for name.
func (r LeadLagReport) Get(name string) (SeriesLeadLag, bool) {
	for _, s := range r.Series {
		if s.Series == name {
			return s, true
		}
	}
	return SeriesLeadLag{}, false
}

// LeadLag correlates each candidate series X(d) with the 1-day forward
// return at d+lag, p(d+lag+1)/p(d+lag) - 1, for lag in [0, MaxLag]. The best lag maximizes
// |correlation|; ties go to the smaller lag.
// Requires Return1D (see AnnotatePrices).
func LeadLag(series domain.AnnotatedSeries, cfg LeadLagConfig) LeadLagReport {
	report := LeadLagReport{
		Range:    series.DateRange(),
		MaxLag:   cfg.MaxLag,
		MinPairs: cfg.MinPairs,
		Series:   make([]SeriesLeadLag, 0, len(leadLagCandidates)),
	}

	for _, cand := range leadLagCandidates {
		report.Series = append(report.Series, profile(series, cand, cfg))
	}
	report.Findings = leadLagFindings(report, cfg.Threshold)
	return report
}

func profile(series domain.AnnotatedSeries, cand leadSeries, cfg LeadLagConfig) SeriesLeadLag {
	out := SeriesLeadLag{Series: cand.name, Lags: make([]LagCorrelation, 0, cfg.MaxLag+1)}
	maxPairs := 0

	for lag := 0; lag <= cfg.MaxLag; lag++ {
		var xs, ys []float64
		for d := range series {
			r, ok := forwardReturn(series, d, lag)
			if !ok {
				continue
			}
			xs = append(xs, cand.value(series[d]))
			ys = append(ys, r)
		}
		lc := LagCorrelation{Lag: lag, Pairs: len(xs)}
		if len(xs) > maxPairs {
			maxPairs = len(xs)
		}
		if len(xs) >= cfg.MinPairs {
			if c, ok := stats.Pearson(xs, ys); ok {
				lc.Correlation = &c
				if out.BestCorrelation == nil || math.Abs(c) > math.Abs(*out.BestCorrelation) {
					l, best := lag, c
					out.BestLag, out.BestCorrelation = &l, &best
				}
			}
		}
		out.Lags = append(out.Lags, lc)
	}

	if out.BestCorrelation == nil {
		out.Err = &domain.InsufficientDataError{
			Metric:    "lead_lag:" + cand.name,
			Required:  cfg.MinPairs,
			Available: maxPairs,
		}
	}
	out.Interpretation = interpret(out, cfg.Threshold)
	return out
}

func interpret(s SeriesLeadLag, threshold float64) string {
	switch {
	case s.BestCorrelation == nil:
		return "insufficient data"
	case math.Abs(*s.BestCorrelation) < threshold:
		return "no significant relationship"
	case *s.BestCorrelation < 0:
		return fmt.Sprintf("higher values precede lower returns (lag %d)", *s.BestLag)
	default:
		return fmt.Sprintf("higher values precede higher returns (lag %d)", *s.BestLag)
	}
}

func leadLagFindings(r LeadLagReport, threshold float64) LeadLagFindings {
	var f LeadLagFindings
	if s, ok := r.Get(SeriesInflow); ok && s.BestCorrelation != nil {
		f.InflowBearish = *s.BestCorrelation < -threshold
	}
	if s, ok := r.Get(SeriesOutflow); ok && s.BestCorrelation != nil {
		f.OutflowBullish = *s.BestCorrelation > threshold
	}
	if s, ok := r.Get(SeriesIntent); ok && s.BestCorrelation != nil {
		f.IntentPredictive = math.Abs(*s.BestCorrelation) >= threshold
	}

	best := -1.0
	for _, s := range r.Series {
		if s.BestCorrelation != nil && math.Abs(*s.BestCorrelation) > best {
			best = math.Abs(*s.BestCorrelation)
			f.BestPredictor = s.Series
		}
	}
	return f
}
