package analysis

import (
	"fmt"
	"time"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/stats"
)

// Level is a high/low classification relative to the cluster medians.
type Level string

const (
	LevelHigh Level = "high"
	LevelLow  Level = "low"
)

// RegimeCluster describes one cluster in original feature units.
type RegimeCluster struct {
	ID            int
	Label         domain.RegimeLabel
	ActivityLevel Level
	IntentLevel   Level
	Count         int
	Percentage    float64
	AvgActivity   float64
	AvgIntent     float64
	AvgVolatility float64
	AvgReturn     *float64 // mean Return1D of member days that have one
}

// RegimeAssignment maps one day to its cluster.
type RegimeAssignment struct {
	Date    time.Time
	Cluster int
	Label   domain.RegimeLabel
}

// RegimeReport is the regime detection output.
type RegimeReport struct {
	Range       domain.DateRange
	K           int // effective cluster count
	Days        int // days with a complete feature vector
	Iterations  int
	Converged   bool
	Clusters    []RegimeCluster // non-empty clusters, by ID
	Assignments []RegimeAssignment
	Current     *RegimeAssignment // last assigned day
	Warnings    []domain.Warning
}

// DetectRegimes clusters days over standardized [activity, intent,
// price volatility] features and labels each cluster by comparing its mean
// activity and intent against the median of the cluster means.
// Days without PriceVolatility are skipped.
func DetectRegimes(series domain.AnnotatedSeries, cfg RegimeConfig) RegimeReport {
	report := RegimeReport{Range: series.DateRange()}

	var rows [][]float64
	var members []int
	for i, d := range series {
		if d.PriceVolatility == nil {
			continue
		}
		rows = append(rows, []float64{float64(d.Activity), float64(d.Intent), *d.PriceVolatility})
		members = append(members, i)
	}
	report.Days = len(rows)
	if len(rows) == 0 {
		report.Converged = true
		report.Warnings = append(report.Warnings, domain.Warning{
			Kind:      domain.WarningDegenerateComputation,
			Component: "regime",
			Message:   "no day has a price volatility, nothing to cluster",
		})
		return report
	}

	k := cfg.K
	if k > len(rows) {
		report.Warnings = append(report.Warnings, domain.Warning{
			Kind:      domain.WarningDegenerateComputation,
			Component: "regime",
			Message:   fmt.Sprintf("only %d days available, k reduced from %d", len(rows), k),
		})
		k = len(rows)
	}

	km := kmeans(standardize(rows), k, cfg.MaxIterations)
	report.K = k
	report.Iterations = km.iterations
	report.Converged = km.converged
	if !km.converged {
		report.Warnings = append(report.Warnings, domain.Warning{
			Kind:      domain.WarningClusteringNonConvergence,
			Component: "regime",
			Message:   fmt.Sprintf("assignments still changing after %d iterations", km.iterations),
		})
	}

	report.Clusters = describeClusters(series, rows, members, km.assign, k)
	labels := make(map[int]domain.RegimeLabel, len(report.Clusters))
	for _, c := range report.Clusters {
		labels[c.ID] = c.Label
	}

	report.Assignments = make([]RegimeAssignment, len(rows))
	for i, idx := range members {
		c := km.assign[i]
		report.Assignments[i] = RegimeAssignment{Date: series[idx].Date, Cluster: c, Label: labels[c]}
	}
	current := report.Assignments[len(report.Assignments)-1]
	report.Current = &current
	return report
}

func describeClusters(series domain.AnnotatedSeries, rows [][]float64, members, assign []int, k int) []RegimeCluster {
	type acc struct {
		n                  int
		activity, intent   float64
		volatility, retSum float64
		retN               int
	}
	accs := make([]acc, k)
	for i, c := range assign {
		a := &accs[c]
		a.n++
		a.activity += rows[i][0]
		a.intent += rows[i][1]
		a.volatility += rows[i][2]
		if r := series[members[i]].Return1D; r != nil {
			a.retSum += *r
			a.retN++
		}
	}

	clusters := make([]RegimeCluster, 0, k)
	for c, a := range accs {
		if a.n == 0 {
			continue
		}
		rc := RegimeCluster{
			ID:            c,
			Count:         a.n,
			Percentage:    100 * float64(a.n) / float64(len(rows)),
			AvgActivity:   a.activity / float64(a.n),
			AvgIntent:     a.intent / float64(a.n),
			AvgVolatility: a.volatility / float64(a.n),
		}
		if a.retN > 0 {
			r := a.retSum / float64(a.retN)
			rc.AvgReturn = &r
		}
		clusters = append(clusters, rc)
	}

	activityMeans := make([]float64, len(clusters))
	intentMeans := make([]float64, len(clusters))
	for i, c := range clusters {
		activityMeans[i] = c.AvgActivity
		intentMeans[i] = c.AvgIntent
	}
	activityMedian := stats.Median(activityMeans)
	intentMedian := stats.Median(intentMeans)

	for i := range clusters {
		highActivity := clusters[i].AvgActivity >= activityMedian
		highIntent := clusters[i].AvgIntent >= intentMedian
		clusters[i].ActivityLevel = level(highActivity)
		clusters[i].IntentLevel = level(highIntent)
		clusters[i].Label = domain.LabelRegime(highActivity, highIntent)
	}
	return clusters
}

func level(high bool) Level {
	if high {
		return LevelHigh
	}
	return LevelLow
}
