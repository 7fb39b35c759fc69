// Package pipeline wires the compositors, signal calculators, backtest and
// analysis suite into one engine call over a materialized series.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"whale-index-lab/internal/activity"
	"whale-index-lab/internal/analysis"
	"whale-index-lab/internal/backtest"
	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/idhash"
	"whale-index-lab/internal/intent"
	"whale-index-lab/internal/logger"
	"whale-index-lab/internal/observability"
	"whale-index-lab/internal/signals"
)

// GeneratorVersion identifies the engine build that produced a Result.
const GeneratorVersion = "1.0.0"

// Options for creating a Pipeline.
type Options struct {
	Logger  *logger.Logger    // nil discards logs
	Clock   func() time.Time  // nil uses time.Now
	Signals []backtest.Signal // nil uses backtest.DefaultSignals
}

// Pipeline runs the engine with a fixed, validated config.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	cfg     Config
	log     *logger.Logger
	clock   func() time.Time
	signals []backtest.Signal
}

// New validates cfg and creates a Pipeline.
func New(cfg Config, opts Options) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:     cfg,
		log:     logger.OrNop(opts.Logger).Named("pipeline"),
		clock:   opts.Clock,
		signals: opts.Signals,
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if p.signals == nil {
		p.signals = backtest.DefaultSignals()
	}
	return p, nil
}

// Config returns the engine config.
func (p *Pipeline) Config() Config { return p.cfg }

// Signals returns the backtest signals.
func (p *Pipeline) Signals() []backtest.Signal { return p.signals }

// Result is the complete output of one engine run.
type Result struct {
	ComputedAt       time.Time
	DataVersion      string // sha256 of the input rows
	GeneratorVersion string
	Range            domain.DateRange

	Series      domain.AnnotatedSeries
	Comparison  activity.Comparison
	Backtests   []*backtest.Results
	Profile     []backtest.ClassProfile
	Summary     *analysis.Summary
	Sufficiency SufficiencyResult
	Warnings    []domain.Warning
}

// Points projects every annotated day for persistence, stamped with the
// run time.
func (r *Result) Points() []domain.IndexPoint {
	ms := r.ComputedAt.UnixMilli()
	out := make([]domain.IndexPoint, len(r.Series))
	for i, d := range r.Series {
		out[i] = domain.ToIndexPoint(d, ms)
	}
	return out
}

// Latest returns the most recent annotated day.
func (r *Result) Latest() (domain.AnnotatedDay, bool) {
	return r.Series.Latest()
}

type stage struct {
	name string
	run  func(domain.AnnotatedSeries) (domain.AnnotatedSeries, []domain.Warning)
}

func (p *Pipeline) stages() []stage {
	cfg := p.cfg
	return []stage{
		{"activity_v1", func(s domain.AnnotatedSeries) (domain.AnnotatedSeries, []domain.Warning) {
			r := activity.ComputeStatic(s, cfg.ActivityV1)
			return r.Series, r.Warnings
		}},
		{"activity", func(s domain.AnnotatedSeries) (domain.AnnotatedSeries, []domain.Warning) {
			r := activity.ComputeAdaptive(s, cfg.Activity)
			return r.Series, r.Warnings
		}},
		{"intent", func(s domain.AnnotatedSeries) (domain.AnnotatedSeries, []domain.Warning) {
			r := intent.Compute(s, cfg.Intent)
			return r.Series, r.Warnings
		}},
		{"momentum", func(s domain.AnnotatedSeries) (domain.AnnotatedSeries, []domain.Warning) {
			r := signals.Momentum(s, cfg.Signals)
			return r.Series, r.Warnings
		}},
		{"confidence", func(s domain.AnnotatedSeries) (domain.AnnotatedSeries, []domain.Warning) {
			r := signals.Confidence(s, cfg.Signals)
			return r.Series, r.Warnings
		}},
		{"prices", func(s domain.AnnotatedSeries) (domain.AnnotatedSeries, []domain.Warning) {
			return analysis.AnnotatePrices(s, cfg.Analysis.PriceWindow), nil
		}},
	}
}

// Annotate computes every per-day column. ctx is checked between stages.
func (p *Pipeline) Annotate(ctx context.Context, series domain.Series) (domain.AnnotatedSeries, []domain.Warning, error) {
	out := domain.Annotate(series)
	var warnings []domain.Warning
	for _, st := range p.stages() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		start := time.Now()
		var w []domain.Warning
		out, w = st.run(out)
		observability.RecordStage(st.name, time.Since(start).Seconds())
		warnings = append(warnings, w...)
	}
	return out, warnings, nil
}

// Run executes the full engine over series: annotation, v1/v2 comparison,
// backtests, forward profile, analysis suite and sufficiency checks.
// An empty series yields *domain.InsufficientDataError.
func (p *Pipeline) Run(ctx context.Context, series domain.Series) (*Result, error) {
	res, err := p.run(ctx, series)
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RecordPipelineRun(status)
	return res, err
}

// RunDays validates days into a Series and runs the engine.
// Invalid input yields *domain.MalformedSeriesError.
func (p *Pipeline) RunDays(ctx context.Context, days []domain.DailyMetric) (*Result, error) {
	series, err := domain.NewSeries(days)
	if err != nil {
		observability.RecordPipelineRun("error")
		return nil, err
	}
	return p.Run(ctx, series)
}

func (p *Pipeline) run(ctx context.Context, series domain.Series) (*Result, error) {
	if series.Len() == 0 {
		return nil, &domain.InsufficientDataError{Metric: "series", Required: 1, Available: 0}
	}

	res := &Result{
		ComputedAt:       p.clock().UTC(),
		DataVersion:      DataVersion(series),
		GeneratorVersion: GeneratorVersion,
	}

	annotated, warnings, err := p.Annotate(ctx, series)
	if err != nil {
		return nil, err
	}
	res.Series = annotated
	res.Range = annotated.DateRange()
	res.Warnings = warnings
	res.Comparison = activity.Compare(annotated)

	start := time.Now()
	res.Backtests, err = backtest.NewRunner(p.cfg.Backtest).RunAll(ctx, annotated, p.signals)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	res.Profile = backtest.ForwardProfile(annotated, p.cfg.Backtest.Horizon)
	observability.RecordStage("backtest", time.Since(start).Seconds())

	start = time.Now()
	res.Summary, err = analysis.Summarize(ctx, annotated, p.cfg.Analysis)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	observability.RecordStage("analysis", time.Since(start).Seconds())
	res.Warnings = append(res.Warnings, res.Summary.Warnings...)

	res.Sufficiency = CheckSeries(series, p.cfg)

	for _, w := range res.Warnings {
		observability.RecordWarning(string(w.Kind), w.Component)
		p.log.Debugw("computation warning", "kind", w.Kind, "component", w.Component, "message", w.Message)
	}
	if !res.Sufficiency.AllPass {
		p.log.Warnw("data sufficiency checks failed", "errors", len(res.Sufficiency.Errors))
	}
	p.log.Infow("engine run complete",
		"days", len(annotated),
		"start", domain.FormatDate(res.Range.Start),
		"end", domain.FormatDate(res.Range.End),
		"warnings", len(res.Warnings),
		"data_version", res.DataVersion[:12],
	)
	return res, nil
}

// DataVersion hashes the input rows so identical inputs can be recognized
// across runs.
func DataVersion(series domain.Series) string {
	return idhash.ComputeDataVersion(series)
}
