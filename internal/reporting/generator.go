package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"whale-index-lab/internal/analysis"
	"whale-index-lab/internal/backtest"
	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/pipeline"
	"whale-index-lab/internal/stats"
	"whale-index-lab/internal/storage"
)

// Generator produces reports from stored daily metrics.
type Generator struct {
	engine *pipeline.Pipeline
	store  storage.DailyMetricStore
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(engine *pipeline.Pipeline, store storage.DailyMetricStore) *Generator {
	return &Generator{
		engine: engine,
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate runs the engine over the full stored history and builds the
// report. The engine result is returned for CSV export.
func (g *Generator) Generate(ctx context.Context) (*Report, *pipeline.Result, error) {
	days, err := g.store.GetByDateRange(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, nil, fmt.Errorf("load daily metrics: %w", err)
	}
	res, err := g.engine.RunDays(ctx, days)
	if err != nil {
		return nil, nil, err
	}
	return Build(res, g.now()), res, nil
}

// Build assembles a report from an engine result.
func Build(res *pipeline.Result, generatedAt time.Time) *Report {
	r := &Report{
		GeneratedAt:      generatedAt,
		ComputedAt:       res.ComputedAt,
		GeneratorVersion: res.GeneratorVersion,
		DataVersion:      res.DataVersion,
		DataSummary:      dataSummary(res.Series),
		DataQuality:      dataQuality(res.Sufficiency),
		IndexStats:       indexStats(res.Series),
		Comparison:       comparison(res),
		SignalMetrics:    signalMetrics(res.Backtests),
		ForwardProfile:   forwardProfile(res.Profile),
	}
	if len(res.Backtests) > 0 {
		r.BacktestHorizon = res.Backtests[0].Horizon
	}
	if latest, ok := res.Latest(); ok {
		r.Latest = LatestRow{
			Date:            latest.Date,
			Activity:        latest.Activity,
			ActivityV1:      latest.ActivityV1,
			Intent:          latest.Intent,
			IntentSignal:    string(latest.IntentSignal),
			Momentum:        latest.Momentum,
			MomentumSignal:  string(latest.MomentumSignal),
			Confidence:      latest.Confidence,
			ConfidenceLevel: string(latest.ConfidenceLevel),
		}
	}
	if s := res.Summary; s != nil {
		r.LeadLag = leadLagRows(s.LeadLag)
		r.LeadLagFindings = s.LeadLag.Findings
		r.Regimes = regimeRows(s.Regimes)
		if s.Regimes.Current != nil {
			r.CurrentRegime = string(s.Regimes.Current.Label)
		}
		r.Volatility = volatilityRows(s.Volatility)
		r.VolatilityFindings = s.Volatility.Findings
		r.Executive = s.Executive
	}
	for _, w := range res.Warnings {
		r.Warnings = append(r.Warnings, w.String())
	}
	return r
}

func dataSummary(series domain.AnnotatedSeries) DataSummary {
	rng := series.DateRange()
	out := DataSummary{TotalDays: len(series), Start: rng.Start, End: rng.End}
	for _, d := range series {
		if d.HasPrice() {
			out.PricedDays++
		}
		out.TotalTxs += d.TxCount
		out.TotalVolume += d.Volume
	}
	return out
}

func dataQuality(s pipeline.SufficiencyResult) DataQualitySection {
	out := DataQualitySection{
		SufficiencyChecks: make([]SufficiencyCheckRow, len(s.Checks)),
		IntegrityErrors:   s.Errors,
		AllChecksPassed:   s.AllPass,
	}
	for i, c := range s.Checks {
		out.SufficiencyChecks[i] = SufficiencyCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return out
}

func statRow(name string, values []float64) IndexStatRow {
	lo, hi := stats.MinMax(values)
	return IndexStatRow{
		Index:  name,
		Mean:   stats.Mean(values),
		Median: stats.Median(values),
		StdDev: stats.StdDev(values),
		Min:    lo,
		Max:    hi,
	}
}

func indexStats(series domain.AnnotatedSeries) []IndexStatRow {
	if len(series) == 0 {
		return nil
	}
	v1 := series.Column(func(d domain.AnnotatedDay) float64 { return float64(d.ActivityV1) })
	return []IndexStatRow{
		statRow("WAI", series.Activities()),
		statRow("WAI v1", v1),
		statRow("WII", series.Intents()),
	}
}

func comparison(res *pipeline.Result) ComparisonSection {
	c := res.Comparison
	return ComparisonSection{
		StaticStdDev:       c.Static.StdDev,
		AdaptiveStdDev:     c.Adaptive.StdDev,
		StaticAt100Pct:     c.Static.PctAt100,
		AdaptiveAt100Pct:   c.Adaptive.PctAt100,
		HighDaysStatic:     c.Sensitivity.HighDaysStatic,
		HighDaysAdaptive:   c.Sensitivity.HighDaysAdaptive,
		MeanWeightTx:       c.Weights.MeanTx,
		MeanWeightVolume:   c.Weights.MeanVolume,
		HigherDispersion:   c.HigherDispersionAdaptive,
		MoreSensitive:      c.MoreSensitiveAdaptive,
		StaticAbove100Days: c.Overflow,
	}
}

// signalMetrics builds rows sorted by signal name.
func signalMetrics(results []*backtest.Results) []SignalMetricRow {
	rows := make([]SignalMetricRow, 0, len(results))
	for _, res := range results {
		row := SignalMetricRow{
			Signal:    res.SignalName,
			Direction: string(res.Direction),
			Signals:   res.SignalCount,
		}
		if m := res.Metrics; m != nil {
			row.Trades = m.TotalTrades
			row.WinRate = m.WinRate
			row.ReturnMean = m.ReturnMean
			row.ReturnMedian = m.ReturnMedian
			row.ReturnP10 = m.ReturnP10
			row.ReturnP90 = m.ReturnP90
			row.MaxDrawdown = m.MaxDrawdown
			row.Sharpe = m.Sharpe
			row.MaxLossStreak = m.MaxLossStreak
		} else if res.Err != nil {
			row.Note = res.Err.Error()
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Signal < rows[j].Signal })
	return rows
}

func forwardProfile(profile []backtest.ClassProfile) []ForwardProfileRow {
	rows := make([]ForwardProfileRow, len(profile))
	for i, p := range profile {
		rows[i] = ForwardProfileRow{
			Signal:       string(p.Signal),
			Days:         p.Days,
			Evaluated:    p.Evaluated,
			MeanReturn:   p.MeanReturn,
			MedianReturn: p.MedianReturn,
			PositivePct:  p.PositivePct,
		}
	}
	return rows
}

func leadLagRows(r analysis.LeadLagReport) []LeadLagRow {
	rows := make([]LeadLagRow, len(r.Series))
	for i, s := range r.Series {
		rows[i] = LeadLagRow{
			Series:          s.Series,
			BestLag:         s.BestLag,
			BestCorrelation: s.BestCorrelation,
			Interpretation:  s.Interpretation,
		}
	}
	return rows
}

func regimeRows(r analysis.RegimeReport) []RegimeRow {
	rows := make([]RegimeRow, len(r.Clusters))
	for i, c := range r.Clusters {
		rows[i] = RegimeRow{
			Regime:        string(c.Label),
			Days:          c.Count,
			Percentage:    c.Percentage,
			AvgActivity:   c.AvgActivity,
			AvgIntent:     c.AvgIntent,
			AvgVolatility: c.AvgVolatility,
			AvgReturn:     c.AvgReturn,
		}
	}
	return rows
}

func volatilityRows(r analysis.VolatilityReport) []VolatilityRow {
	var rows []VolatilityRow
	add := func(group string, ps []analysis.Partition) {
		for _, p := range ps {
			rows = append(rows, VolatilityRow{
				Group:          group,
				Partition:      p.Name,
				Days:           p.Days,
				MeanVolatility: p.MeanVolatility,
				MeanNextReturn: p.MeanForwardReturn,
			})
		}
	}
	add("wii_signal", r.BySignal)
	add("flow", r.ByFlow)
	return rows
}
