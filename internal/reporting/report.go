package reporting

import (
	"time"

	"whale-index-lab/internal/analysis"
)

// Report is the scientific report over one engine run.
type Report struct {
	// Metadata
	GeneratedAt      time.Time
	ComputedAt       time.Time
	GeneratorVersion string
	DataVersion      string

	DataSummary DataSummary
	DataQuality DataQualitySection

	IndexStats []IndexStatRow // activity, activity v1, intent
	Latest     LatestRow

	Comparison ComparisonSection

	// Backtest (sorted by signal name)
	BacktestHorizon int
	SignalMetrics   []SignalMetricRow
	ForwardProfile  []ForwardProfileRow

	LeadLag         []LeadLagRow
	LeadLagFindings analysis.LeadLagFindings

	Regimes       []RegimeRow
	CurrentRegime string // empty when no day was clustered

	Volatility         []VolatilityRow
	VolatilityFindings analysis.VolatilityFindings

	Executive analysis.ExecutiveSummary
	Warnings  []string
}

// DataQualitySection contains data sufficiency checks and integrity errors.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	IntegrityErrors   []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// DataSummary describes the input history.
type DataSummary struct {
	TotalDays   int
	PricedDays  int
	Start       time.Time
	End         time.Time
	TotalTxs    int
	TotalVolume float64
}

// IndexStatRow summarizes one index column.
type IndexStatRow struct {
	Index  string
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
}

// LatestRow is the most recent day's index values.
type LatestRow struct {
	Date            time.Time
	Activity        int
	ActivityV1      int
	Intent          int
	IntentSignal    string
	Momentum        float64
	MomentumSignal  string
	Confidence      float64
	ConfidenceLevel string
}

// ComparisonSection contrasts the static and adaptive Activity Index.
type ComparisonSection struct {
	StaticStdDev       float64
	AdaptiveStdDev     float64
	StaticAt100Pct     float64
	AdaptiveAt100Pct   float64
	HighDaysStatic     int
	HighDaysAdaptive   int
	MeanWeightTx       float64
	MeanWeightVolume   float64
	HigherDispersion   bool
	MoreSensitive      bool
	StaticAbove100Days int
}

// SignalMetricRow is one backtested signal.
type SignalMetricRow struct {
	Signal        string
	Direction     string
	Signals       int
	Trades        int
	WinRate       float64 // percent
	ReturnMean    float64
	ReturnMedian  float64
	ReturnP10     float64
	ReturnP90     float64
	MaxDrawdown   float64
	Sharpe        float64
	MaxLossStreak int
	Note          string // insufficient-data reason when Trades is 0
}

// ForwardProfileRow is the forward return after days of one intent class.
type ForwardProfileRow struct {
	Signal       string
	Days         int
	Evaluated    int
	MeanReturn   *float64
	MedianReturn *float64
	PositivePct  *float64
}

// LeadLagRow is the best lag of one candidate series.
type LeadLagRow struct {
	Series          string
	BestLag         *int
	BestCorrelation *float64
	Interpretation  string
}

// RegimeRow describes one regime cluster.
type RegimeRow struct {
	Regime        string
	Days          int
	Percentage    float64
	AvgActivity   float64
	AvgIntent     float64
	AvgVolatility float64
	AvgReturn     *float64
}

// VolatilityRow is one conditional-volatility partition.
type VolatilityRow struct {
	Group          string
	Partition      string
	Days           int
	MeanVolatility *float64
	MeanNextReturn *float64
}
