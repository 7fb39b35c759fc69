// Package service serves range queries over the latest engine run and
// keeps that run fresh from storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"whale-index-lab/internal/activity"
	"whale-index-lab/internal/analysis"
	"whale-index-lab/internal/backtest"
	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/ingestion"
	"whale-index-lab/internal/logger"
	"whale-index-lab/internal/observability"
	"whale-index-lab/internal/pipeline"
	"whale-index-lab/internal/storage"
)

// ErrNoData is returned when a query range holds no days.
var ErrNoData = errors.New("no data in range")

// Publisher receives the latest index point after every refresh.
type Publisher interface {
	Publish(point domain.IndexPoint)
}

// Range is an inclusive calendar-day filter. Zero bounds are open.
type Range struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether both bounds are open.
func (r Range) IsZero() bool { return r.Start.IsZero() && r.End.IsZero() }

// Options for creating a Service.
type Options struct {
	Engine    *pipeline.Pipeline
	Metrics   storage.DailyMetricStore
	Points    storage.IndexPointStore // optional
	Ingest    *ingestion.Manager      // optional
	Publisher Publisher               // optional
	Logger    *logger.Logger
}

// Service owns the most recent engine result. Rolling windows are always
// computed over the full stored history; queries filter the result.
type Service struct {
	engine    *pipeline.Pipeline
	metrics   storage.DailyMetricStore
	points    storage.IndexPointStore
	ingest    *ingestion.Manager
	publisher Publisher
	log       *logger.Logger

	refreshMu sync.Mutex
	mu        sync.RWMutex
	current   *pipeline.Result
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	if opts.Engine == nil || opts.Metrics == nil {
		return nil, errors.New("service: engine and metrics store are required")
	}
	return &Service{
		engine:    opts.Engine,
		metrics:   opts.Metrics,
		points:    opts.Points,
		ingest:    opts.Ingest,
		publisher: opts.Publisher,
		log:       logger.OrNop(opts.Logger).Named("service"),
	}, nil
}

// EngineConfig returns the parameters the engine computes with.
func (s *Service) EngineConfig() pipeline.Config { return s.engine.Config() }

// Refresh ingests new days when an ingest manager is configured, reruns
// the engine over the full stored history, persists the index points and
// publishes the latest one. Concurrent calls are serialized.
func (s *Service) Refresh(ctx context.Context) (*pipeline.Result, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.ingest != nil {
		if _, err := s.ingest.Ingest(ctx); err != nil {
			// Serve what is stored rather than fail the refresh.
			s.log.Warnw("ingest failed, recomputing stored history", "error", err)
		}
	}

	days, err := s.metrics.GetByDateRange(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load daily metrics: %w", err)
	}
	res, err := s.engine.RunDays(ctx, days)
	if err != nil {
		return nil, err
	}

	if s.points != nil {
		if err := s.points.InsertBulk(ctx, res.Points()); err != nil {
			return nil, fmt.Errorf("store index points: %w", err)
		}
	}

	s.mu.Lock()
	s.current = res
	s.mu.Unlock()

	if latest, ok := res.Latest(); ok {
		observability.SetLatestIndex(latest.Activity, latest.Intent, latest.Confidence)
		if s.publisher != nil {
			s.publisher.Publish(domain.ToIndexPoint(latest, res.ComputedAt.UnixMilli()))
		}
	}
	observability.RecordRefresh(res.ComputedAt.Unix())
	s.log.Infow("refreshed", "days", len(res.Series), "data_version", res.DataVersion[:12])
	return res, nil
}

// Current returns the latest result, computing it on first use.
func (s *Service) Current(ctx context.Context) (*pipeline.Result, error) {
	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	if cur != nil {
		return cur, nil
	}
	return s.Refresh(ctx)
}

// Run refreshes every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.log.Errorw("periodic refresh failed", "error", err)
			}
		}
	}
}

// Series returns the annotated days within r.
func (s *Service) Series(ctx context.Context, r Range) (domain.AnnotatedSeries, error) {
	cur, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	out := cur.Series.Between(r.Start, r.End)
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// Latest returns the most recent annotated day.
func (s *Service) Latest(ctx context.Context) (domain.AnnotatedDay, error) {
	cur, err := s.Current(ctx)
	if err != nil {
		return domain.AnnotatedDay{}, err
	}
	d, ok := cur.Latest()
	if !ok {
		return domain.AnnotatedDay{}, ErrNoData
	}
	return d, nil
}

// HistoryQuery filters History. Limit 0 means unlimited.
type HistoryQuery struct {
	Range
	Limit int
}

// History returns the days within q newest first, truncated to q.Limit.
func (s *Service) History(ctx context.Context, q HistoryQuery) (domain.AnnotatedSeries, error) {
	series, err := s.Series(ctx, q.Range)
	if err != nil {
		return nil, err
	}
	n := len(series)
	if q.Limit > 0 && q.Limit < n {
		n = q.Limit
	}
	out := make(domain.AnnotatedSeries, n)
	for i := range out {
		out[i] = series[len(series)-1-i]
	}
	return out, nil
}

// Comparison returns the v1/v2 comparison within r.
func (s *Service) Comparison(ctx context.Context, r Range) (activity.Comparison, error) {
	if r.IsZero() {
		cur, err := s.Current(ctx)
		if err != nil {
			return activity.Comparison{}, err
		}
		return cur.Comparison, nil
	}
	series, err := s.Series(ctx, r)
	if err != nil {
		return activity.Comparison{}, err
	}
	return activity.Compare(series), nil
}

// BacktestReport bundles signal backtests with the per-class forward
// return profile.
type BacktestReport struct {
	Horizon int
	Results []*backtest.Results
	Profile []backtest.ClassProfile
}

// Backtest evaluates the engine's signals within r at horizon days.
// A horizon of 0 uses the configured default.
func (s *Service) Backtest(ctx context.Context, r Range, horizon int) (*BacktestReport, error) {
	cfg := s.engine.Config().Backtest
	if horizon == 0 {
		horizon = cfg.Horizon
	}
	cur, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if r.IsZero() && horizon == cfg.Horizon {
		return &BacktestReport{Horizon: horizon, Results: cur.Backtests, Profile: cur.Profile}, nil
	}

	series, err := s.Series(ctx, r)
	if err != nil {
		return nil, err
	}
	cfg.Horizon = horizon
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	results, err := backtest.NewRunner(cfg).RunAll(ctx, series, s.engine.Signals())
	if err != nil {
		return nil, err
	}
	return &BacktestReport{
		Horizon: horizon,
		Results: results,
		Profile: backtest.ForwardProfile(series, horizon),
	}, nil
}

// LeadLag runs the lead-lag analysis within r. A maxLag of 0 uses the
// configured default.
func (s *Service) LeadLag(ctx context.Context, r Range, maxLag int) (analysis.LeadLagReport, error) {
	cfg := s.engine.Config().Analysis.LeadLag
	if maxLag > 0 {
		cfg.MaxLag = maxLag
	}
	series, err := s.Series(ctx, r)
	if err != nil {
		return analysis.LeadLagReport{}, err
	}
	return analysis.LeadLag(series, cfg), nil
}

// Regimes runs regime detection within r.
func (s *Service) Regimes(ctx context.Context, r Range) (analysis.RegimeReport, error) {
	series, err := s.Series(ctx, r)
	if err != nil {
		return analysis.RegimeReport{}, err
	}
	return analysis.DetectRegimes(series, s.engine.Config().Analysis.Regime), nil
}

// Volatility runs the conditional-volatility analysis within r.
func (s *Service) Volatility(ctx context.Context, r Range) (analysis.VolatilityReport, error) {
	series, err := s.Series(ctx, r)
	if err != nil {
		return analysis.VolatilityReport{}, err
	}
	return analysis.ConditionalVolatility(series, s.engine.Config().Analysis.Volatility), nil
}

// Summary returns the combined scientific summary within r.
func (s *Service) Summary(ctx context.Context, r Range) (*analysis.Summary, error) {
	if r.IsZero() {
		cur, err := s.Current(ctx)
		if err != nil {
			return nil, err
		}
		return cur.Summary, nil
	}
	series, err := s.Series(ctx, r)
	if err != nil {
		return nil, err
	}
	return analysis.Summarize(ctx, series, s.engine.Config().Analysis)
}

// Sufficiency returns the data sufficiency checks of the latest run.
func (s *Service) Sufficiency(ctx context.Context) (pipeline.SufficiencyResult, error) {
	cur, err := s.Current(ctx)
	if err != nil {
		return pipeline.SufficiencyResult{}, err
	}
	return cur.Sufficiency, nil
}
