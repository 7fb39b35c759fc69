package analysis

import (
	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/stats"
)

// Flow-intensity partition names.
const (
	PartitionHighInflow  = "high_inflow"
	PartitionHighOutflow = "high_outflow"
	PartitionLowActivity = "low_activity"
)

// Partition summarizes trailing volatility and next-day return over a
// subset of days. Means are nil for empty subsets.
type Partition struct {
	Name              string
	Days              int
	MeanVolatility    *float64
	MeanForwardReturn *float64 // mean p(d+1)/p(d) - 1
}

// FlowCutoffs records the percentile thresholds used for flow partitions.
type FlowCutoffs struct {
	HighInflow  float64
	HighOutflow float64
	LowTotal    float64
}

// VolatilityFindings condenses the partitions into qualitative findings.
type VolatilityFindings struct {
	HighInflowIncreasesVolatility bool
	SellingPressureMoreVolatile   bool
	InflowBearishConfirmed        bool
}

// VolatilityReport is the conditional-volatility output.
type VolatilityReport struct {
	Range               domain.DateRange
	Days                int // days with a trailing volatility
	OverallVolatility   *float64
	BySignal            []Partition // accumulation, neutral, selling_pressure
	ByFlow              []Partition // high_inflow, high_outflow, low_activity
	Cutoffs             FlowCutoffs
	InflowToVolatility  *float64
	OutflowToVolatility *float64
	Findings            VolatilityFindings
}

// ConditionalVolatility partitions days by intent signal and by flow
// intensity and reports mean trailing volatility and mean next-day return
// per partition. Days without PriceVolatility are skipped.
func ConditionalVolatility(series domain.AnnotatedSeries, cfg VolatilityConfig) VolatilityReport {
	report := VolatilityReport{Range: series.DateRange()}

	var idx []int
	var vols, inflows, outflows, totals []float64
	for i, d := range series {
		if d.PriceVolatility == nil {
			continue
		}
		idx = append(idx, i)
		vols = append(vols, *d.PriceVolatility)
		inflows = append(inflows, d.ExchangeInflow)
		outflows = append(outflows, d.ExchangeOutflow)
		totals = append(totals, d.TotalFlow())
	}
	report.Days = len(idx)
	if len(idx) == 0 {
		return report
	}
	overall := stats.Mean(vols)
	report.OverallVolatility = &overall

	report.Cutoffs = FlowCutoffs{
		HighInflow:  stats.PercentileOf(inflows, cfg.HighPercentile),
		HighOutflow: stats.PercentileOf(outflows, cfg.HighPercentile),
		LowTotal:    stats.PercentileOf(totals, cfg.LowPercentile),
	}

	partition := func(name string, keep func(k int) bool) Partition {
		p := Partition{Name: name}
		var pv, pr []float64
		for k, i := range idx {
			if !keep(k) {
				continue
			}
			p.Days++
			pv = append(pv, vols[k])
			if r, ok := forwardReturn(series, i, 0); ok {
				pr = append(pr, r)
			}
		}
		if len(pv) > 0 {
			m := stats.Mean(pv)
			p.MeanVolatility = &m
		}
		if len(pr) > 0 {
			m := stats.Mean(pr)
			p.MeanForwardReturn = &m
		}
		return p
	}

	for _, sig := range []domain.IntentSignal{domain.IntentAccumulation, domain.IntentNeutral, domain.IntentSellingPressure} {
		report.BySignal = append(report.BySignal, partition(string(sig), func(k int) bool {
			return series[idx[k]].IntentSignal == sig
		}))
	}
	report.ByFlow = []Partition{
		partition(PartitionHighInflow, func(k int) bool { return inflows[k] >= report.Cutoffs.HighInflow }),
		partition(PartitionHighOutflow, func(k int) bool { return outflows[k] >= report.Cutoffs.HighOutflow }),
		partition(PartitionLowActivity, func(k int) bool { return totals[k] <= report.Cutoffs.LowTotal }),
	}

	if r, ok := stats.Pearson(inflows, vols); ok {
		report.InflowToVolatility = &r
	}
	if r, ok := stats.Pearson(outflows, vols); ok {
		report.OutflowToVolatility = &r
	}

	report.Findings = volatilityFindings(report)
	return report
}

func findPartition(ps []Partition, name string) Partition {
	for _, p := range ps {
		if p.Name == name {
			return p
		}
	}
	return Partition{Name: name}
}

func volatilityFindings(r VolatilityReport) VolatilityFindings {
	var f VolatilityFindings
	high := findPartition(r.ByFlow, PartitionHighInflow)
	if high.MeanVolatility != nil && r.OverallVolatility != nil {
		f.HighInflowIncreasesVolatility = *high.MeanVolatility > *r.OverallVolatility
	}
	if high.MeanForwardReturn != nil {
		f.InflowBearishConfirmed = *high.MeanForwardReturn < 0
	}
	sell := findPartition(r.BySignal, string(domain.IntentSellingPressure))
	acc := findPartition(r.BySignal, string(domain.IntentAccumulation))
	if sell.MeanVolatility != nil && acc.MeanVolatility != nil {
		f.SellingPressureMoreVolatile = *sell.MeanVolatility > *acc.MeanVolatility
	}
	return f
}
