package pipeline

import (
	"context"
	"fmt"
	"time"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/storage"
)

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult holds all checks. Failing checks do not stop the
// engine; they are surfaced in reports next to the results they weaken.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string // data integrity findings, e.g. calendar gaps
}

// MinPriceCoverage is the share of days that must carry a reference price.
const MinPriceCoverage = 0.9

// SufficiencyChecker validates stored history against the engine config.
type SufficiencyChecker struct {
	store storage.DailyMetricStore
	cfg   Config
}

// NewSufficiencyChecker creates a new sufficiency checker.
func NewSufficiencyChecker(store storage.DailyMetricStore, cfg Config) *SufficiencyChecker {
	return &SufficiencyChecker{store: store, cfg: cfg}
}

// Check loads days within [start, end] and runs CheckSeries over them.
func (c *SufficiencyChecker) Check(ctx context.Context, start, end time.Time) (*SufficiencyResult, error) {
	days, err := c.store.GetByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load daily metrics: %w", err)
	}
	series, err := domain.NewSeries(days)
	if err != nil {
		return nil, err
	}
	res := CheckSeries(series, c.cfg)
	return &res, nil
}

// CheckSeries runs every sufficiency check over series.
func CheckSeries(series domain.Series, cfg Config) SufficiencyResult {
	result := SufficiencyResult{AllPass: true, Errors: []string{}}
	add := func(check SufficiencyCheck, errs ...string) {
		result.Checks = append(result.Checks, check)
		if !check.Pass {
			result.AllPass = false
			result.Errors = append(result.Errors, errs...)
		}
	}

	n := series.Len()
	add(minDays("Percentile history", n, cfg.Activity.HistoryWindow))
	add(minDays("Activity baseline", n, cfg.Activity.BaselineWindow))

	gaps := calendarGaps(series)
	add(SufficiencyCheck{
		Name:      "Calendar gaps",
		Threshold: "0 missing days",
		Actual:    fmt.Sprintf("%d missing days", len(gaps)),
		Pass:      len(gaps) == 0,
	}, gaps...)

	add(checkPriceCoverage(series))

	zeroFlow, zeroErrs := zeroFlowDays(series)
	add(SufficiencyCheck{
		Name:      "Zero exchange-flow days",
		Threshold: "0",
		Actual:    fmt.Sprintf("%d", zeroFlow),
		Pass:      zeroFlow == 0,
	}, zeroErrs...)

	add(minDays("Backtest horizon", n, cfg.Backtest.Horizon+1))
	add(minDays("Lead-lag pairs", n, cfg.Analysis.LeadLag.MinPairs+cfg.Analysis.LeadLag.MaxLag+1))

	return result
}

func minDays(name string, have, need int) SufficiencyCheck {
	return SufficiencyCheck{
		Name:      name,
		Threshold: fmt.Sprintf(">= %d days", need),
		Actual:    fmt.Sprintf("%d days", have),
		Pass:      have >= need,
	}
}

// calendarGaps lists every calendar day missing between the first and
// last day of series.
func calendarGaps(series domain.Series) []string {
	var gaps []string
	for i := 1; i < series.Len(); i++ {
		prev, cur := series.At(i-1).Date, series.At(i).Date
		for d := prev.AddDate(0, 0, 1); d.Before(cur); d = d.AddDate(0, 0, 1) {
			gaps = append(gaps, fmt.Sprintf("missing day %s", domain.FormatDate(d)))
		}
	}
	return gaps
}

func checkPriceCoverage(series domain.Series) SufficiencyCheck {
	check := SufficiencyCheck{
		Name:      "Reference price coverage",
		Threshold: fmt.Sprintf(">= %.0f%%", MinPriceCoverage*100),
		Actual:    "0.0%",
	}
	if series.Len() == 0 {
		return check
	}
	priced := 0
	for _, p := range series.Prices() {
		if p != nil {
			priced++
		}
	}
	coverage := float64(priced) / float64(series.Len())
	check.Actual = fmt.Sprintf("%.1f%%", coverage*100)
	check.Pass = coverage >= MinPriceCoverage
	return check
}

func zeroFlowDays(series domain.Series) (int, []string) {
	var errs []string
	for i, flow := range series.TotalFlows() {
		if flow == 0 {
			errs = append(errs, fmt.Sprintf("zero exchange flow on %s", domain.FormatDate(series.At(i).Date)))
		}
	}
	return len(errs), errs
}
