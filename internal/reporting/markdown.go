package reporting

import (
	"fmt"
	"strings"
	"time"

	"whale-index-lab/internal/domain"
)

func fmtPtr(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func fmtLag(v *int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Whale Index Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Engine run: %s | Generator %s | Data version `%s`\n\n",
		r.ComputedAt.Format(time.RFC3339), r.GeneratorVersion, r.DataVersion))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Days | %d |\n", r.DataSummary.TotalDays))
	sb.WriteString(fmt.Sprintf("| Days with price | %d |\n", r.DataSummary.PricedDays))
	sb.WriteString(fmt.Sprintf("| First day | %s |\n", domain.FormatDate(r.DataSummary.Start)))
	sb.WriteString(fmt.Sprintf("| Last day | %s |\n", domain.FormatDate(r.DataSummary.End)))
	sb.WriteString(fmt.Sprintf("| Whale transactions | %d |\n", r.DataSummary.TotalTxs))
	sb.WriteString(fmt.Sprintf("| Whale volume | %.2f |\n", r.DataSummary.TotalVolume))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.SufficiencyChecks) > 0 {
		sb.WriteString("### Sufficiency Checks\n\n")
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.SufficiencyChecks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")

		if r.DataQuality.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Results below may rest on too little data.\n\n")
		}
	} else if len(r.DataQuality.IntegrityErrors) == 0 {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	// Integrity errors are shown even without sufficiency checks
	if len(r.DataQuality.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range r.DataQuality.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	// Latest
	sb.WriteString("## Latest\n\n")
	if r.DataSummary.TotalDays > 0 {
		l := r.Latest
		sb.WriteString(fmt.Sprintf("%s: WAI %d (v1 %d), WII %d (%s), momentum %.2f (%s), confidence %.2f (%s)\n\n",
			domain.FormatDate(l.Date), l.Activity, l.ActivityV1, l.Intent, l.IntentSignal,
			l.Momentum, l.MomentumSignal, l.Confidence, l.ConfidenceLevel))
	} else {
		sb.WriteString("No data.\n\n")
	}

	// Index Statistics
	sb.WriteString("## Index Statistics\n\n")
	if len(r.IndexStats) > 0 {
		sb.WriteString("| Index | Mean | Median | Std | Min | Max |\n")
		sb.WriteString("|-------|------|--------|-----|-----|-----|\n")
		for _, s := range r.IndexStats {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f | %.0f | %.0f |\n",
				s.Index, s.Mean, s.Median, s.StdDev, s.Min, s.Max))
		}
	} else {
		sb.WriteString("No index statistics available.\n")
	}
	sb.WriteString("\n")

	// v1 vs v2
	c := r.Comparison
	sb.WriteString("## WAI v1 vs v2\n\n")
	sb.WriteString("| Metric | v1 | v2 |\n")
	sb.WriteString("|--------|----|----|\n")
	sb.WriteString(fmt.Sprintf("| Std | %.2f | %.2f |\n", c.StaticStdDev, c.AdaptiveStdDev))
	sb.WriteString(fmt.Sprintf("| Share at 100 (%%) | %.2f | %.2f |\n", c.StaticAt100Pct, c.AdaptiveAt100Pct))
	sb.WriteString(fmt.Sprintf("| High-activity days | %d | %d |\n", c.HighDaysStatic, c.HighDaysAdaptive))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Mean weights: tx %.4f, volume %.4f. v1 days above 100: %d. "+
		"v2 more dispersed: %s. v2 more sensitive: %s.\n\n",
		c.MeanWeightTx, c.MeanWeightVolume, c.StaticAbove100Days, yesNo(c.HigherDispersion), yesNo(c.MoreSensitive)))

	// Backtest
	sb.WriteString(fmt.Sprintf("## Signal Backtest (%d-day horizon)\n\n", r.BacktestHorizon))
	if len(r.SignalMetrics) > 0 {
		sb.WriteString("| Signal | Direction | Signals | Trades | WinRate% | Mean | Median | P10 | P90 | MaxDD | Sharpe | MaxLoss |\n")
		sb.WriteString("|--------|-----------|---------|--------|----------|------|--------|-----|-----|-------|--------|---------|\n")
		for _, m := range r.SignalMetrics {
			if m.Trades == 0 {
				sb.WriteString(fmt.Sprintf("| %s | %s | %d | 0 | - | - | - | - | - | - | - | - |\n",
					m.Signal, m.Direction, m.Signals))
				continue
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.2f | %.4f | %.4f | %.4f | %.4f | %.4f | %.2f | %d |\n",
				m.Signal, m.Direction, m.Signals, m.Trades, m.WinRate, m.ReturnMean, m.ReturnMedian,
				m.ReturnP10, m.ReturnP90, m.MaxDrawdown, m.Sharpe, m.MaxLossStreak))
		}
	} else {
		sb.WriteString("No signal metrics available.\n")
	}
	sb.WriteString("\n")

	if len(r.ForwardProfile) > 0 {
		sb.WriteString("### Forward Return by WII Signal\n\n")
		sb.WriteString("| Signal | Days | Evaluated | Mean | Median | Positive% |\n")
		sb.WriteString("|--------|------|-----------|------|--------|-----------|\n")
		for _, p := range r.ForwardProfile {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %s | %s |\n",
				p.Signal, p.Days, p.Evaluated,
				fmtPtr(p.MeanReturn, "%.4f"), fmtPtr(p.MedianReturn, "%.4f"), fmtPtr(p.PositivePct, "%.2f")))
		}
		sb.WriteString("\n")
	}

	// Lead-Lag
	sb.WriteString("## Lead-Lag Analysis\n\n")
	if len(r.LeadLag) > 0 {
		sb.WriteString("| Series | Best Lag | Correlation | Interpretation |\n")
		sb.WriteString("|--------|----------|-------------|----------------|\n")
		for _, l := range r.LeadLag {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				l.Series, fmtLag(l.BestLag), fmtPtr(l.BestCorrelation, "%.4f"), l.Interpretation))
		}
		sb.WriteString("\n")
		f := r.LeadLagFindings
		sb.WriteString(fmt.Sprintf("Inflow bearish: %s. Outflow bullish: %s. WII predictive: %s.\n\n",
			yesNo(f.InflowBearish), yesNo(f.OutflowBullish), yesNo(f.IntentPredictive)))
	} else {
		sb.WriteString("No lead-lag results available.\n\n")
	}

	// Regimes
	sb.WriteString("## Regime Detection\n\n")
	if len(r.Regimes) > 0 {
		sb.WriteString("| Regime | Days | Share% | Avg WAI | Avg WII | Avg Volatility | Avg Return |\n")
		sb.WriteString("|--------|------|--------|---------|---------|----------------|------------|\n")
		for _, g := range r.Regimes {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f | %.2f | %.4f | %s |\n",
				g.Regime, g.Days, g.Percentage, g.AvgActivity, g.AvgIntent, g.AvgVolatility,
				fmtPtr(g.AvgReturn, "%.4f")))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No regimes detected.\n\n")
	}
	if r.CurrentRegime != "" {
		sb.WriteString(fmt.Sprintf("Current regime: **%s**\n\n", r.CurrentRegime))
	}

	// Conditional Volatility
	sb.WriteString("## Conditional Volatility\n\n")
	if len(r.Volatility) > 0 {
		sb.WriteString("| Group | Partition | Days | Mean Volatility | Mean Next-Day Return |\n")
		sb.WriteString("|-------|-----------|------|-----------------|----------------------|\n")
		for _, v := range r.Volatility {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s |\n",
				v.Group, v.Partition, v.Days, fmtPtr(v.MeanVolatility, "%.4f"), fmtPtr(v.MeanNextReturn, "%.4f")))
		}
		sb.WriteString("\n")
		f := r.VolatilityFindings
		sb.WriteString(fmt.Sprintf("High inflow raises volatility: %s. Selling pressure more volatile: %s.\n\n",
			yesNo(f.HighInflowIncreasesVolatility), yesNo(f.SellingPressureMoreVolatile)))
	} else {
		sb.WriteString("No volatility partitions available.\n\n")
	}

	// Executive Summary
	e := r.Executive
	sb.WriteString("## Executive Summary\n\n")
	sb.WriteString(fmt.Sprintf("- Inflow effect: %s\n", e.InflowEffect))
	sb.WriteString(fmt.Sprintf("- Outflow effect: %s\n", e.OutflowEffect))
	sb.WriteString(fmt.Sprintf("- WII predictive: %s\n", yesNo(e.IntentPredictive)))
	if e.BestPredictor != "" {
		sb.WriteString(fmt.Sprintf("- Best predictor: %s\n", e.BestPredictor))
	}
	if e.CurrentRegime != "" {
		sb.WriteString(fmt.Sprintf("- Current regime: %s\n", e.CurrentRegime))
	}
	sb.WriteString("\n")

	// Warnings
	if len(r.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
