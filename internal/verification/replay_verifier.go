package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/pipeline"
	"whale-index-lab/internal/storage"
)

var (
	// ErrNoRun is returned when no index run has been stored.
	ErrNoRun = errors.New("no stored index run")

	// ErrEmptyRun is returned when a run has no points.
	ErrEmptyRun = errors.New("stored index run is empty")
)

// ReplayVerifier recomputes stored runs with the current engine.
type ReplayVerifier struct {
	engine  *pipeline.Pipeline
	metrics storage.DailyMetricStore
	points  storage.IndexPointStore
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	Engine  *pipeline.Pipeline
	Metrics storage.DailyMetricStore
	Points  storage.IndexPointStore
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		engine:  opts.Engine,
		metrics: opts.Metrics,
		points:  opts.Points,
	}
}

// VerifyLatest verifies the most recent stored run.
func (v *ReplayVerifier) VerifyLatest(ctx context.Context) (*Report, error) {
	ms, err := v.points.LatestRun(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoRun
		}
		return nil, err
	}
	return v.VerifyRun(ctx, ms)
}

// VerifyRun verifies one stored run. The engine is replayed over the daily
// metrics up to the run's last date; days ingested later are ignored.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, computedAtMs int64) (*Report, error) {
	// 1. Load stored points
	stored, err := v.points.GetRun(ctx, computedAtMs, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load run %d: %w", computedAtMs, err)
	}
	if len(stored) == 0 {
		return nil, ErrEmptyRun
	}

	// 2. Replay the engine over the same history
	last := stored[len(stored)-1].Date
	days, err := v.metrics.GetByDateRange(ctx, time.Time{}, last)
	if err != nil {
		return nil, fmt.Errorf("load daily metrics: %w", err)
	}
	series, err := domain.NewSeries(days)
	if err != nil {
		return nil, err
	}
	annotated, _, err := v.engine.Annotate(ctx, series)
	if err != nil {
		return nil, err
	}
	replayed := make(map[time.Time]domain.IndexPoint, len(annotated))
	for _, d := range annotated {
		replayed[d.Date] = domain.ToIndexPoint(d, computedAtMs)
	}

	// 3. Compare
	report := &Report{
		ComputedAtMs: computedAtMs,
		DataVersion:  pipeline.DataVersion(series),
		TotalDays:    len(stored),
	}
	for _, p := range stored {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var divergences []FieldDivergence
		if r, ok := replayed[p.Date]; ok {
			divergences = ComparePoints(p, r)
		} else {
			divergences = []FieldDivergence{{Field: "Date", Expected: domain.FormatDate(p.Date), Actual: nil}}
		}
		if len(divergences) == 0 {
			report.MatchedDays++
			continue
		}
		report.DivergentDays++
		report.Results = append(report.Results, DayResult{
			Date:        p.Date,
			Match:       false,
			Divergences: divergences,
		})
	}
	return report, nil
}
