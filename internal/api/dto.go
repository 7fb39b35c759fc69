package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"whale-index-lab/internal/activity"
	"whale-index-lab/internal/analysis"
	"whale-index-lab/internal/backtest"
	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/pipeline"
	"whale-index-lab/internal/service"
)

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func round2(v float64) float64 { return round(v, 2) }
func round4(v float64) float64 { return round(v, 4) }

// roundPtr keeps nil as nil.
func roundPtr(v *float64, places int32) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v, places)
	return &r
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return domain.FormatDate(t)
}

type dateRangeDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

func newDateRange(r domain.DateRange) dateRangeDTO {
	return dateRangeDTO{Start: formatDate(r.Start), End: formatDate(r.End), Days: r.Days()}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// dayDTO is one history row of the Activity Index endpoints.
type dayDTO struct {
	Date            string   `json:"date"`
	WAI             int      `json:"wai"`
	WAIV1           int      `json:"wai_v1"`
	TxCount         int      `json:"tx_count"`
	Volume          float64  `json:"volume"`
	NormTx          float64  `json:"norm_tx"`
	NormVolume      float64  `json:"norm_volume"`
	WeightTx        float64  `json:"weight_tx"`
	WeightVolume    float64  `json:"weight_volume"`
	WII             int      `json:"wii"`
	WIISignal       string   `json:"wii_signal"`
	Momentum        float64  `json:"momentum"`
	MomentumSignal  string   `json:"momentum_signal"`
	Confidence      float64  `json:"confidence"`
	ConfidenceLevel string   `json:"confidence_level"`
	Close           *float64 `json:"btc_close"`
	Return1D        *float64 `json:"btc_return_1d"`
	Volatility7D    *float64 `json:"btc_volatility_7d"`
}

func newDay(d domain.AnnotatedDay) dayDTO {
	return dayDTO{
		Date:            domain.FormatDate(d.Date),
		WAI:             d.Activity,
		WAIV1:           d.ActivityV1,
		TxCount:         d.TxCount,
		Volume:          round2(d.Volume),
		NormTx:          round4(d.NormTx),
		NormVolume:      round4(d.NormVolume),
		WeightTx:        round4(d.WeightTx),
		WeightVolume:    round4(d.WeightVolume),
		WII:             d.Intent,
		WIISignal:       string(d.IntentSignal),
		Momentum:        round2(d.Momentum),
		MomentumSignal:  string(d.MomentumSignal),
		Confidence:      round2(d.Confidence),
		ConfidenceLevel: string(d.ConfidenceLevel),
		Close:           roundPtr(d.ReferencePrice, 2),
		Return1D:        roundPtr(d.Return1D, 4),
		Volatility7D:    roundPtr(d.PriceVolatility, 4),
	}
}

func newDays(series domain.AnnotatedSeries) []dayDTO {
	out := make([]dayDTO, len(series))
	for i, d := range series {
		out[i] = newDay(d)
	}
	return out
}

type historyDTO struct {
	Count int      `json:"count"`
	Data  []dayDTO `json:"data"`
}

var intentInterpretation = map[string]string{
	string(domain.IntentSellingPressure): "WII < 30: high exchange inflow, selling pressure",
	string(domain.IntentNeutral):         "WII 30-70: balanced exchange activity",
	string(domain.IntentAccumulation):    "WII > 70: high exchange outflow, accumulation",
}

type intentDayDTO struct {
	Date            string  `json:"date"`
	WII             int     `json:"wii"`
	WIISignal       string  `json:"wii_signal"`
	ExchangeInflow  float64 `json:"exchange_inflow"`
	ExchangeOutflow float64 `json:"exchange_outflow"`
	ExchangeNetflow float64 `json:"exchange_netflow"`
	NetflowRatio    float64 `json:"netflow_ratio"`
}

func newIntentDay(d domain.AnnotatedDay) intentDayDTO {
	return intentDayDTO{
		Date:            domain.FormatDate(d.Date),
		WII:             d.Intent,
		WIISignal:       string(d.IntentSignal),
		ExchangeInflow:  round2(d.ExchangeInflow),
		ExchangeOutflow: round2(d.ExchangeOutflow),
		ExchangeNetflow: round2(d.Netflow()),
		NetflowRatio:    round4(d.NetflowRatio),
	}
}

type intentLatestDTO struct {
	intentDayDTO
	Interpretation map[string]string `json:"interpretation"`
}

type intentHistoryDTO struct {
	Count          int               `json:"count"`
	Data           []intentDayDTO    `json:"data"`
	Interpretation map[string]string `json:"interpretation"`
}

func newIntentHistory(series domain.AnnotatedSeries) intentHistoryDTO {
	out := intentHistoryDTO{
		Count:          len(series),
		Data:           make([]intentDayDTO, len(series)),
		Interpretation: intentInterpretation,
	}
	for i, d := range series {
		out.Data[i] = newIntentDay(d)
	}
	return out
}

type momentumDTO struct {
	Date           string  `json:"date"`
	WAI            int     `json:"wai"`
	Momentum       float64 `json:"momentum"`
	MomentumSignal string  `json:"momentum_signal"`
}

type confidenceDTO struct {
	Date            string  `json:"date"`
	WAI             int     `json:"wai"`
	WII             int     `json:"wii"`
	Confidence      float64 `json:"confidence"`
	ConfidenceLevel string  `json:"confidence_level"`
}

type signalHistoryDTO[T any] struct {
	Count int `json:"count"`
	Data  []T `json:"data"`
}

func newMomentumHistory(series domain.AnnotatedSeries) signalHistoryDTO[momentumDTO] {
	out := signalHistoryDTO[momentumDTO]{Count: len(series), Data: make([]momentumDTO, len(series))}
	for i, d := range series {
		out.Data[i] = momentumDTO{
			Date:           domain.FormatDate(d.Date),
			WAI:            d.Activity,
			Momentum:       round2(d.Momentum),
			MomentumSignal: string(d.MomentumSignal),
		}
	}
	return out
}

func newConfidenceHistory(series domain.AnnotatedSeries) signalHistoryDTO[confidenceDTO] {
	out := signalHistoryDTO[confidenceDTO]{Count: len(series), Data: make([]confidenceDTO, len(series))}
	for i, d := range series {
		out.Data[i] = confidenceDTO{
			Date:            domain.FormatDate(d.Date),
			WAI:             d.Activity,
			WII:             d.Intent,
			Confidence:      round2(d.Confidence),
			ConfidenceLevel: string(d.ConfidenceLevel),
		}
	}
	return out
}

type indexStatsDTO struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std"`
}

func newIndexStats(s service.IndexStats) indexStatsDTO {
	return indexStatsDTO{
		Mean:   round2(s.Mean),
		Median: round2(s.Median),
		Min:    round2(s.Min),
		Max:    round2(s.Max),
		StdDev: round2(s.StdDev),
	}
}

type statisticsDTO struct {
	TotalDays int           `json:"total_days"`
	Range     dateRangeDTO  `json:"date_range"`
	WAI       indexStatsDTO `json:"wai"`
	WII       indexStatsDTO `json:"wii"`
	Latest    dayDTO        `json:"latest"`
}

func newStatistics(s *service.Statistics) statisticsDTO {
	return statisticsDTO{
		TotalDays: s.TotalDays,
		Range:     newDateRange(s.Range),
		WAI:       newIndexStats(s.Activity),
		WII:       newIndexStats(s.Intent),
		Latest:    newDay(s.Latest),
	}
}

type variantDTO struct {
	Mean       float64 `json:"mean"`
	Median     float64 `json:"median"`
	StdDev     float64 `json:"std"`
	Min        int     `json:"min"`
	Max        int     `json:"max"`
	CountAt100 int     `json:"count_at_100"`
	PctAt100   float64 `json:"pct_at_100"`
}

func newVariant(v activity.VariantStats) variantDTO {
	return variantDTO{
		Mean:       round2(v.Mean),
		Median:     round2(v.Median),
		StdDev:     round2(v.StdDev),
		Min:        v.Min,
		Max:        v.Max,
		CountAt100: v.CountAt100,
		PctAt100:   round2(v.PctAt100),
	}
}

type bucketDTO struct {
	Label    string `json:"range"`
	Static   int    `json:"wai_v1"`
	Adaptive int    `json:"wai_v2"`
}

type comparisonDTO struct {
	Range       dateRangeDTO       `json:"date_range"`
	TotalDays   int                `json:"total_days"`
	Static      variantDTO         `json:"wai_v1"`
	Adaptive    variantDTO         `json:"wai_v2"`
	Histogram   []bucketDTO        `json:"histogram"`
	Overflow    int                `json:"v1_above_100"`
	Sensitivity map[string]any     `json:"high_activity_sensitivity"`
	Weights     map[string]float64 `json:"dynamic_weights"`
	Findings    map[string]bool    `json:"key_findings"`
}

func newComparison(c activity.Comparison) comparisonDTO {
	out := comparisonDTO{
		Range:     newDateRange(c.Range),
		TotalDays: c.TotalDays,
		Static:    newVariant(c.Static),
		Adaptive:  newVariant(c.Adaptive),
		Histogram: make([]bucketDTO, len(c.Histogram)),
		Overflow:  c.Overflow,
		Sensitivity: map[string]any{
			"threshold":            c.Sensitivity.HighActivityCutoff,
			"high_days_v1":         c.Sensitivity.HighDaysStatic,
			"high_days_v2":         c.Sensitivity.HighDaysAdaptive,
			"high_days_change_pct": round2(c.Sensitivity.HighDaysChangePct),
			"avg_high_v1":          round2(c.Sensitivity.AvgHighStatic),
			"avg_high_v2":          round2(c.Sensitivity.AvgHighAdaptive),
			"high_correlation":     roundPtr(c.Sensitivity.HighCorrelation, 4),
		},
		Weights: map[string]float64{
			"mean_tx":     round4(c.Weights.MeanTx),
			"mean_volume": round4(c.Weights.MeanVolume),
			"std_tx":      round4(c.Weights.StdTx),
			"std_volume":  round4(c.Weights.StdVolume),
			"min_tx":      round4(c.Weights.MinTx),
			"max_tx":      round4(c.Weights.MaxTx),
		},
		Findings: map[string]bool{
			"higher_dispersion_v2": c.HigherDispersionAdaptive,
			"more_extreme_v2":      c.MoreExtremeAdaptive,
			"more_sensitive_v2":    c.MoreSensitiveAdaptive,
		},
	}
	for i, b := range c.Histogram {
		out.Histogram[i] = bucketDTO{Label: b.Label, Static: b.Static, Adaptive: b.Adapt}
	}
	return out
}

type metricsDTO struct {
	TotalTrades   int     `json:"total_trades"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	ReturnMean    float64 `json:"return_mean"`
	ReturnMedian  float64 `json:"return_median"`
	ReturnP10     float64 `json:"return_p10"`
	ReturnP90     float64 `json:"return_p90"`
	ReturnMin     float64 `json:"return_min"`
	ReturnMax     float64 `json:"return_max"`
	ReturnStddev  float64 `json:"return_std"`
	ForwardMean   float64 `json:"forward_return_mean"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	Sharpe        float64 `json:"sharpe"`
	MaxLossStreak int     `json:"max_loss_streak"`
}

func newMetrics(m *backtest.Metrics) *metricsDTO {
	if m == nil {
		return nil
	}
	return &metricsDTO{
		TotalTrades:   m.TotalTrades,
		Wins:          m.Wins,
		Losses:        m.Losses,
		WinRate:       round2(m.WinRate),
		ReturnMean:    round4(m.ReturnMean),
		ReturnMedian:  round4(m.ReturnMedian),
		ReturnP10:     round4(m.ReturnP10),
		ReturnP90:     round4(m.ReturnP90),
		ReturnMin:     round4(m.ReturnMin),
		ReturnMax:     round4(m.ReturnMax),
		ReturnStddev:  round4(m.ReturnStddev),
		ForwardMean:   round4(m.ForwardMean),
		MaxDrawdown:   round4(m.MaxDrawdown),
		Sharpe:        round2(m.Sharpe),
		MaxLossStreak: m.MaxLossStreak,
	}
}

type signalResultDTO struct {
	Signal      string      `json:"signal"`
	Direction   string      `json:"direction"`
	SignalCount int         `json:"signal_count"`
	Excluded    int         `json:"excluded"`
	Metrics     *metricsDTO `json:"metrics"`
	Error       string      `json:"error,omitempty"`
}

type classProfileDTO struct {
	Signal       string   `json:"wii_signal"`
	Days         int      `json:"days"`
	Evaluated    int      `json:"evaluated"`
	MeanReturn   *float64 `json:"mean_return"`
	MedianReturn *float64 `json:"median_return"`
	PositivePct  *float64 `json:"positive_pct"`
}

type backtestDTO struct {
	Horizon int               `json:"horizon_days"`
	Signals []signalResultDTO `json:"signals"`
	Profile []classProfileDTO `json:"forward_return_by_signal"`
}

func newBacktest(r *service.BacktestReport) backtestDTO {
	out := backtestDTO{
		Horizon: r.Horizon,
		Signals: make([]signalResultDTO, len(r.Results)),
		Profile: make([]classProfileDTO, len(r.Profile)),
	}
	for i, res := range r.Results {
		out.Signals[i] = signalResultDTO{
			Signal:      res.SignalName,
			Direction:   string(res.Direction),
			SignalCount: res.SignalCount,
			Excluded:    res.Excluded,
			Metrics:     newMetrics(res.Metrics),
			Error:       errString(res.Err),
		}
	}
	for i, p := range r.Profile {
		out.Profile[i] = classProfileDTO{
			Signal:       string(p.Signal),
			Days:         p.Days,
			Evaluated:    p.Evaluated,
			MeanReturn:   roundPtr(p.MeanReturn, 4),
			MedianReturn: roundPtr(p.MedianReturn, 4),
			PositivePct:  roundPtr(p.PositivePct, 2),
		}
	}
	return out
}

type lagDTO struct {
	Lag         int      `json:"lag"`
	Pairs       int      `json:"pairs"`
	Correlation *float64 `json:"correlation"`
}

type seriesLeadLagDTO struct {
	Series          string   `json:"series"`
	Lags            []lagDTO `json:"lags"`
	BestLag         *int     `json:"best_lag"`
	BestCorrelation *float64 `json:"best_correlation"`
	Interpretation  string   `json:"interpretation"`
	Error           string   `json:"error,omitempty"`
}

type leadLagDTO struct {
	Range    dateRangeDTO       `json:"date_range"`
	MaxLag   int                `json:"max_lag"`
	MinPairs int                `json:"min_pairs"`
	Series   []seriesLeadLagDTO `json:"analyses"`
	Findings map[string]any     `json:"key_findings"`
}

func newLeadLag(r analysis.LeadLagReport) leadLagDTO {
	out := leadLagDTO{
		Range:    newDateRange(r.Range),
		MaxLag:   r.MaxLag,
		MinPairs: r.MinPairs,
		Series:   make([]seriesLeadLagDTO, len(r.Series)),
		Findings: map[string]any{
			"inflow_bearish":    r.Findings.InflowBearish,
			"outflow_bullish":   r.Findings.OutflowBullish,
			"intent_predictive": r.Findings.IntentPredictive,
			"best_predictor":    r.Findings.BestPredictor,
		},
	}
	for i, s := range r.Series {
		lags := make([]lagDTO, len(s.Lags))
		for j, l := range s.Lags {
			lags[j] = lagDTO{Lag: l.Lag, Pairs: l.Pairs, Correlation: roundPtr(l.Correlation, 4)}
		}
		out.Series[i] = seriesLeadLagDTO{
			Series:          s.Series,
			Lags:            lags,
			BestLag:         s.BestLag,
			BestCorrelation: roundPtr(s.BestCorrelation, 4),
			Interpretation:  s.Interpretation,
			Error:           errString(s.Err),
		}
	}
	return out
}

type clusterDTO struct {
	ID            int      `json:"id"`
	Label         string   `json:"regime"`
	ActivityLevel string   `json:"activity_level"`
	IntentLevel   string   `json:"intent_level"`
	Count         int      `json:"days"`
	Percentage    float64  `json:"percentage"`
	AvgActivity   float64  `json:"avg_wai"`
	AvgIntent     float64  `json:"avg_wii"`
	AvgVolatility float64  `json:"avg_volatility"`
	AvgReturn     *float64 `json:"avg_return"`
}

type assignmentDTO struct {
	Date    string `json:"date"`
	Cluster int    `json:"cluster"`
	Label   string `json:"regime"`
}

type regimeDTO struct {
	Range      dateRangeDTO     `json:"date_range"`
	K          int              `json:"k"`
	Days       int              `json:"days"`
	Iterations int              `json:"iterations"`
	Converged  bool             `json:"converged"`
	Clusters   []clusterDTO     `json:"regimes"`
	Current    *assignmentDTO   `json:"current_regime"`
	Timeline   []assignmentDTO  `json:"timeline"`
	Warnings   []domain.Warning `json:"warnings,omitempty"`
}

func newAssignment(a domain.RegimeLabel, date time.Time, cluster int) assignmentDTO {
	return assignmentDTO{Date: domain.FormatDate(date), Cluster: cluster, Label: string(a)}
}

func newRegimes(r analysis.RegimeReport) regimeDTO {
	out := regimeDTO{
		Range:      newDateRange(r.Range),
		K:          r.K,
		Days:       r.Days,
		Iterations: r.Iterations,
		Converged:  r.Converged,
		Clusters:   make([]clusterDTO, len(r.Clusters)),
		Timeline:   make([]assignmentDTO, len(r.Assignments)),
		Warnings:   r.Warnings,
	}
	for i, c := range r.Clusters {
		out.Clusters[i] = clusterDTO{
			ID:            c.ID,
			Label:         string(c.Label),
			ActivityLevel: string(c.ActivityLevel),
			IntentLevel:   string(c.IntentLevel),
			Count:         c.Count,
			Percentage:    round2(c.Percentage),
			AvgActivity:   round2(c.AvgActivity),
			AvgIntent:     round2(c.AvgIntent),
			AvgVolatility: round4(c.AvgVolatility),
			AvgReturn:     roundPtr(c.AvgReturn, 4),
		}
	}
	for i, a := range r.Assignments {
		out.Timeline[i] = newAssignment(a.Label, a.Date, a.Cluster)
	}
	if r.Current != nil {
		cur := newAssignment(r.Current.Label, r.Current.Date, r.Current.Cluster)
		out.Current = &cur
	}
	return out
}

type partitionDTO struct {
	Name              string   `json:"name"`
	Days              int      `json:"days"`
	MeanVolatility    *float64 `json:"mean_volatility"`
	MeanForwardReturn *float64 `json:"mean_next_day_return"`
}

func newPartitions(ps []analysis.Partition) []partitionDTO {
	out := make([]partitionDTO, len(ps))
	for i, p := range ps {
		out[i] = partitionDTO{
			Name:              p.Name,
			Days:              p.Days,
			MeanVolatility:    roundPtr(p.MeanVolatility, 4),
			MeanForwardReturn: roundPtr(p.MeanForwardReturn, 4),
		}
	}
	return out
}

type volatilityDTO struct {
	Range               dateRangeDTO       `json:"date_range"`
	Days                int                `json:"days"`
	OverallVolatility   *float64           `json:"overall_volatility"`
	BySignal            []partitionDTO     `json:"by_wii_signal"`
	ByFlow              []partitionDTO     `json:"by_flow"`
	Cutoffs             map[string]float64 `json:"flow_cutoffs"`
	InflowToVolatility  *float64           `json:"inflow_volatility_correlation"`
	OutflowToVolatility *float64           `json:"outflow_volatility_correlation"`
	Findings            map[string]bool    `json:"key_findings"`
}

func newVolatility(r analysis.VolatilityReport) volatilityDTO {
	return volatilityDTO{
		Range:             newDateRange(r.Range),
		Days:              r.Days,
		OverallVolatility: roundPtr(r.OverallVolatility, 4),
		BySignal:          newPartitions(r.BySignal),
		ByFlow:            newPartitions(r.ByFlow),
		Cutoffs: map[string]float64{
			"high_inflow":  round2(r.Cutoffs.HighInflow),
			"high_outflow": round2(r.Cutoffs.HighOutflow),
			"low_total":    round2(r.Cutoffs.LowTotal),
		},
		InflowToVolatility:  roundPtr(r.InflowToVolatility, 4),
		OutflowToVolatility: roundPtr(r.OutflowToVolatility, 4),
		Findings: map[string]bool{
			"high_inflow_increases_volatility": r.Findings.HighInflowIncreasesVolatility,
			"selling_pressure_more_volatile":   r.Findings.SellingPressureMoreVolatile,
			"inflow_bearish_confirmed":         r.Findings.InflowBearishConfirmed,
		},
	}
}

type executiveDTO struct {
	InflowEffect         string `json:"inflow_effect"`
	OutflowEffect        string `json:"outflow_effect"`
	IntentPredictive     bool   `json:"wii_predictive"`
	BestPredictor        string `json:"best_predictor"`
	CurrentRegime        string `json:"current_regime"`
	HighInflowVolatility bool   `json:"high_inflow_increases_volatility"`
}

type summaryDTO struct {
	Title      string           `json:"title"`
	Range      dateRangeDTO     `json:"date_range"`
	LeadLag    leadLagDTO       `json:"lead_lag_analysis"`
	Regimes    regimeDTO        `json:"regime_detection"`
	Volatility volatilityDTO    `json:"conditional_volatility"`
	Executive  executiveDTO     `json:"executive_summary"`
	Warnings   []domain.Warning `json:"warnings,omitempty"`
}

func newSummary(s *analysis.Summary) summaryDTO {
	return summaryDTO{
		Title:      "Whale flow analysis",
		Range:      newDateRange(s.Range),
		LeadLag:    newLeadLag(s.LeadLag),
		Regimes:    newRegimes(s.Regimes),
		Volatility: newVolatility(s.Volatility),
		Executive: executiveDTO{
			InflowEffect:         s.Executive.InflowEffect,
			OutflowEffect:        s.Executive.OutflowEffect,
			IntentPredictive:     s.Executive.IntentPredictive,
			BestPredictor:        s.Executive.BestPredictor,
			CurrentRegime:        string(s.Executive.CurrentRegime),
			HighInflowVolatility: s.Executive.HighInflowVolatility,
		},
		Warnings: s.Warnings,
	}
}

type healthDTO struct {
	Status      string          `json:"status"`
	Service     string          `json:"service"`
	Timestamp   string          `json:"timestamp"`
	DataVersion string          `json:"data_version,omitempty"`
	ComputedAt  string          `json:"computed_at,omitempty"`
	Days        int             `json:"days"`
	Sufficiency *sufficiencyDTO `json:"data_sufficiency,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type checkDTO struct {
	Name      string `json:"name"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
	Pass      bool   `json:"pass"`
}

type sufficiencyDTO struct {
	AllPass bool       `json:"all_pass"`
	Checks  []checkDTO `json:"checks"`
	Errors  []string   `json:"errors,omitempty"`
}

func newSufficiency(r pipeline.SufficiencyResult) *sufficiencyDTO {
	out := &sufficiencyDTO{AllPass: r.AllPass, Checks: make([]checkDTO, len(r.Checks)), Errors: r.Errors}
	for i, c := range r.Checks {
		out.Checks[i] = checkDTO{Name: c.Name, Threshold: c.Threshold, Actual: c.Actual, Pass: c.Pass}
	}
	return out
}

type indexDTO struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Endpoints   []string `json:"endpoints"`
}

type formulaStepDTO struct {
	Name    string `json:"name"`
	Formula string `json:"formula"`
}

type formulaParamsDTO struct {
	BaselineKind     string `json:"baseline_kind"`
	BaselineWindow   int    `json:"baseline_window"`
	VolatilityWindow int    `json:"volatility_window"`
	HistoryWindow    int    `json:"history_window"`
	SmoothingSpan    int    `json:"smoothing_span"`
}

type staticFormulaDTO struct {
	Formula        string `json:"formula"`
	BaselineKind   string `json:"baseline_kind"`
	BaselineWindow int    `json:"baseline_window"`
	ClipMax        int    `json:"clip_max"`
}

type formulaDTO struct {
	Version    string           `json:"version"`
	Index      string           `json:"index"`
	Steps      []formulaStepDTO `json:"steps"`
	Parameters formulaParamsDTO `json:"parameters"`
	Static     staticFormulaDTO `json:"v1"`
	Intent     []formulaStepDTO `json:"wii"`
}

// newFormula renders the index formulas with the engine's windows filled in.
func newFormula(cfg pipeline.Config) formulaDTO {
	a := cfg.Activity
	base := func(kind string, w int) string { return fmt.Sprintf("%s_%d", kind, w) }
	b := base(string(a.BaselineKind), a.BaselineWindow)
	volW := int(a.EffectiveVolatilityWindow())
	v1 := base(string(cfg.ActivityV1.BaselineKind), cfg.ActivityV1.BaselineWindow)

	return formulaDTO{
		Version: pipeline.GeneratorVersion,
		Index:   "Whale Activity Index (adaptive)",
		Steps: []formulaStepDTO{
			{"normalization", fmt.Sprintf("N_tx(d) = tx(d) / %s(tx); N_vol(d) = vol(d) / %s(vol)", b, b)},
			{"volatility", fmt.Sprintf("sigma(d) = stddev_%d(N_vol)", volW)},
			{"weighting", fmt.Sprintf("w_vol(d) = PR_%d(sigma)(d); w_tx(d) = 1 - w_vol(d)", volW)},
			{"raw", "raw(d) = w_tx(d) * N_tx(d) + w_vol(d) * N_vol(d)"},
			{"scaling", fmt.Sprintf("scaled(d) = round(100 * PR_%d(raw)(d))", a.HistoryWindow)},
			{"smoothing", fmt.Sprintf("WAI(d) = round(EMA_%d(scaled)(d))", a.SmoothingSpan)},
		},
		Parameters: formulaParamsDTO{
			BaselineKind:     string(a.BaselineKind),
			BaselineWindow:   a.BaselineWindow,
			VolatilityWindow: volW,
			HistoryWindow:    a.HistoryWindow,
			SmoothingSpan:    a.SmoothingSpan,
		},
		Static: staticFormulaDTO{
			Formula: fmt.Sprintf("WAI_v1(d) = clip(round(100 * (0.5 * tx(d) / %s(tx) + 0.5 * vol(d) / %s(vol))), 0, %d)",
				v1, v1, cfg.ActivityV1.ClipMax),
			BaselineKind:   string(cfg.ActivityV1.BaselineKind),
			BaselineWindow: cfg.ActivityV1.BaselineWindow,
			ClipMax:        cfg.ActivityV1.ClipMax,
		},
		Intent: []formulaStepDTO{
			{"netflow_ratio", "r(d) = (outflow(d) - inflow(d)) / (outflow(d) + inflow(d))"},
			{"scaling", fmt.Sprintf("scaled(d) = round(100 * PR_%d((r + 1) / 2)(d))", cfg.Intent.HistoryWindow)},
			{"smoothing", fmt.Sprintf("WII(d) = round(EMA_%d(scaled)(d))", cfg.Intent.SmoothingSpan)},
		},
	}
}

type errorDTO struct {
	Error string `json:"error"`
}
