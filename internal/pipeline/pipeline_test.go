package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-index-lab/internal/backtest"
	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/fixture"
)

var fixedNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return fixedNow }
	}
	p, err := New(Default(), opts)
	require.NoError(t, err)
	return p
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.Intent.HistoryWindow = 0

	_, err := New(cfg, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine config")
}

func TestRun_Synthetic(t *testing.T) {
	p := newTestPipeline(t, Options{})
	series := fixture.Synthetic(250, 7)

	res, err := p.Run(context.Background(), series)
	require.NoError(t, err)

	assert.Equal(t, fixedNow, res.ComputedAt)
	assert.Equal(t, GeneratorVersion, res.GeneratorVersion)
	assert.Len(t, res.DataVersion, 64)
	assert.Equal(t, 250, res.Range.Days())
	require.Len(t, res.Series, 250)

	for _, d := range res.Series {
		assert.GreaterOrEqual(t, d.Activity, 0)
		assert.LessOrEqual(t, d.Activity, 100)
		assert.GreaterOrEqual(t, d.Intent, 0)
		assert.LessOrEqual(t, d.Intent, 100)
		assert.InDelta(t, 1.0, d.WeightTx+d.WeightVolume, 1e-12)
		assert.Equal(t, domain.ClassifyIntent(d.Intent), d.IntentSignal)
	}
	assert.Nil(t, res.Series[0].Return1D)
	assert.NotNil(t, res.Series[1].Return1D)

	require.Len(t, res.Backtests, 2)
	assert.Equal(t, string(domain.IntentAccumulation), res.Backtests[0].SignalName)
	assert.Equal(t, string(domain.IntentSellingPressure), res.Backtests[1].SignalName)
	assert.Len(t, res.Profile, 3)

	require.NotNil(t, res.Summary)
	assert.Equal(t, res.Range, res.Summary.Range)
	assert.Equal(t, 250, res.Comparison.TotalDays)

	assert.True(t, res.Sufficiency.AllPass, "errors: %v", res.Sufficiency.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	p := newTestPipeline(t, Options{})
	series := fixture.Synthetic(220, 3)

	a, err := p.Run(context.Background(), series)
	require.NoError(t, err)
	b, err := p.Run(context.Background(), series)
	require.NoError(t, err)

	assert.Equal(t, a.DataVersion, b.DataVersion)
	assert.Equal(t, a.Series, b.Series)
	assert.Equal(t, a.Summary.Regimes.Assignments, b.Summary.Regimes.Assignments)
}

func TestRun_EmptySeries(t *testing.T) {
	p := newTestPipeline(t, Options{})

	_, err := p.Run(context.Background(), domain.Series{})

	var insufficient *domain.InsufficientDataError
	require.True(t, errors.As(err, &insufficient), "got %v", err)
	assert.Equal(t, "series", insufficient.Metric)
	assert.Equal(t, 1, insufficient.Required)
}

func TestRunDays_Malformed(t *testing.T) {
	p := newTestPipeline(t, Options{})
	days := []domain.DailyMetric{
		{Date: domain.Day(2024, time.May, 2), TxCount: 1},
		{Date: domain.Day(2024, time.May, 1), TxCount: 1},
	}

	_, err := p.RunDays(context.Background(), days)
	assert.True(t, errors.Is(err, domain.ErrMalformedSeries), "got %v", err)
}

func TestRun_CanceledContext(t *testing.T) {
	p := newTestPipeline(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Run(ctx, fixture.Synthetic(30, 1))
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestRun_CustomSignals(t *testing.T) {
	p := newTestPipeline(t, Options{
		Signals: []backtest.Signal{backtest.IntentAbove("busy", 60, domain.Bullish)},
	})

	res, err := p.Run(context.Background(), fixture.Synthetic(60, 2))
	require.NoError(t, err)
	require.Len(t, res.Backtests, 1)
	assert.Equal(t, "busy", res.Backtests[0].SignalName)
}

func TestRun_ShortSeriesFlagsSufficiency(t *testing.T) {
	p := newTestPipeline(t, Options{})

	res, err := p.Run(context.Background(), fixture.Synthetic(10, 2))
	require.NoError(t, err)
	assert.False(t, res.Sufficiency.AllPass)
	assert.Len(t, res.Series, 10)
}

func TestResult_PointsAndLatest(t *testing.T) {
	p := newTestPipeline(t, Options{})
	res, err := p.Run(context.Background(), fixture.Synthetic(40, 9))
	require.NoError(t, err)

	points := res.Points()
	require.Len(t, points, 40)
	for i, pt := range points {
		assert.Equal(t, fixedNow.UnixMilli(), pt.ComputedAtMs)
		assert.True(t, pt.Date.Equal(res.Series[i].Date))
		assert.Equal(t, res.Series[i].Activity, pt.Activity)
		assert.Equal(t, res.Series[i].Intent, pt.Intent)
	}

	latest, ok := res.Latest()
	require.True(t, ok)
	assert.True(t, latest.Date.Equal(res.Range.End))
}

func TestDataVersion(t *testing.T) {
	a := fixture.Synthetic(20, 1)
	b := fixture.Synthetic(20, 1)
	c := fixture.Synthetic(20, 2)

	assert.Equal(t, DataVersion(a), DataVersion(b))
	assert.NotEqual(t, DataVersion(a), DataVersion(c))
	assert.NotEqual(t, DataVersion(a), DataVersion(a.Between(time.Time{}, domain.Day(2024, time.January, 10))))
}
