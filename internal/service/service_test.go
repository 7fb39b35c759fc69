package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/feed"
	"whale-index-lab/internal/fixture"
	"whale-index-lab/internal/ingestion"
	"whale-index-lab/internal/pipeline"
	"whale-index-lab/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	points []domain.IndexPoint
}

func (p *recordingPublisher) Publish(pt domain.IndexPoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.points = append(p.points, pt)
}

// tickingClock advances one second per call so each run gets its own key.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type testEnv struct {
	svc       *Service
	metrics   *memory.DailyMetricStore
	points    *memory.IndexPointStore
	publisher *recordingPublisher
	series    domain.Series
}

func setup(t *testing.T, days int) testEnv {
	t.Helper()
	ctx := context.Background()

	metrics := memory.NewDailyMetricStore()
	series, err := pipeline.LoadFixtures(ctx, metrics, nil, days, 21)
	require.NoError(t, err)

	engine, err := pipeline.New(pipeline.Default(), pipeline.Options{Clock: tickingClock()})
	require.NoError(t, err)

	points := memory.NewIndexPointStore()
	pub := &recordingPublisher{}
	svc, err := New(Options{Engine: engine, Metrics: metrics, Points: points, Publisher: pub})
	require.NoError(t, err)

	return testEnv{svc: svc, metrics: metrics, points: points, publisher: pub, series: series}
}

func TestNew_RequiresEngineAndStore(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestService_RefreshPersistsAndPublishes(t *testing.T) {
	f := setup(t, 250)
	ctx := context.Background()

	res, err := f.svc.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, res.Series, 250)

	run, err := f.points.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.ComputedAt.UnixMilli(), run)

	stored, err := f.points.GetRun(ctx, run, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, stored, 250)

	require.Len(t, f.publisher.points, 1)
	latest, _ := res.Latest()
	assert.True(t, f.publisher.points[0].Date.Equal(latest.Date))
	assert.Equal(t, latest.Activity, f.publisher.points[0].Activity)

	cur, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Same(t, res, cur)

	// A second refresh is a new run.
	again, err := f.svc.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, again.ComputedAt.After(res.ComputedAt))
	assert.Equal(t, res.DataVersion, again.DataVersion)
}

func TestService_CurrentComputesLazily(t *testing.T) {
	f := setup(t, 40)

	cur, err := f.svc.Current(context.Background())
	require.NoError(t, err)
	assert.Len(t, cur.Series, 40)
}

func TestService_RefreshEmptyStore(t *testing.T) {
	engine, err := pipeline.New(pipeline.Default(), pipeline.Options{})
	require.NoError(t, err)
	svc, err := New(Options{Engine: engine, Metrics: memory.NewDailyMetricStore()})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background())
	assert.True(t, errors.Is(err, domain.ErrInsufficientData), "got %v", err)
}

func TestService_RefreshWithIngest(t *testing.T) {
	ctx := context.Background()
	metrics := memory.NewDailyMetricStore()
	engine, err := pipeline.New(pipeline.Default(), pipeline.Options{})
	require.NoError(t, err)

	svc, err := New(Options{
		Engine:  engine,
		Metrics: metrics,
		Ingest: ingestion.NewManager(ingestion.ManagerOptions{
			Source: feed.Fixtures{Days: 30, Seed: 1},
			Store:  metrics,
		}),
	})
	require.NoError(t, err)

	res, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Series, 30)
}

func TestService_History(t *testing.T) {
	f := setup(t, 60)
	ctx := context.Background()

	all, err := f.svc.History(ctx, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, all, 60)
	assert.True(t, all[0].Date.After(all[1].Date), "newest first")

	limited, err := f.svc.History(ctx, HistoryQuery{Limit: 5})
	require.NoError(t, err)
	require.Len(t, limited, 5)
	assert.Equal(t, all[:5], limited)

	start := fixture.DefaultStart.AddDate(0, 0, 10)
	end := fixture.DefaultStart.AddDate(0, 0, 19)
	ranged, err := f.svc.History(ctx, HistoryQuery{Range: Range{Start: start, End: end}})
	require.NoError(t, err)
	require.Len(t, ranged, 10)
	assert.True(t, ranged[0].Date.Equal(end))
	assert.True(t, ranged[9].Date.Equal(start))

	_, err = f.svc.History(ctx, HistoryQuery{Range: Range{Start: domain.Day(2030, time.January, 1)}})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestService_Latest(t *testing.T) {
	f := setup(t, 20)

	latest, err := f.svc.Latest(context.Background())
	require.NoError(t, err)
	_, last := f.series.DateRange()
	assert.True(t, latest.Date.Equal(last))
}

func TestService_Statistics(t *testing.T) {
	f := setup(t, 90)

	st, err := f.svc.Statistics(context.Background(), Range{})
	require.NoError(t, err)

	assert.Equal(t, 90, st.TotalDays)
	assert.Equal(t, 90, st.Range.Days())
	assert.LessOrEqual(t, st.Activity.Min, st.Activity.Median)
	assert.LessOrEqual(t, st.Activity.Median, st.Activity.Max)
	assert.GreaterOrEqual(t, st.Activity.Min, 0.0)
	assert.LessOrEqual(t, st.Intent.Max, 100.0)
	assert.True(t, st.Latest.Date.Equal(st.Range.End))
}

func TestService_Backtest(t *testing.T) {
	f := setup(t, 120)
	ctx := context.Background()

	def, err := f.svc.Backtest(ctx, Range{}, 0)
	require.NoError(t, err)
	cur, _ := f.svc.Current(ctx)
	assert.Equal(t, 7, def.Horizon)
	assert.Equal(t, cur.Backtests, def.Results)

	short, err := f.svc.Backtest(ctx, Range{}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, short.Horizon)
	require.Len(t, short.Results, 2)
	assert.Equal(t, 3, short.Results[0].Horizon)
	assert.Len(t, short.Profile, 3)

	_, err = f.svc.Backtest(ctx, Range{}, -1)
	assert.Error(t, err)
}

func TestService_Analyses(t *testing.T) {
	f := setup(t, 120)
	ctx := context.Background()
	r := Range{Start: fixture.DefaultStart.AddDate(0, 0, 20)}

	ll, err := f.svc.LeadLag(ctx, r, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, ll.MaxLag)
	require.NotEmpty(t, ll.Series)
	assert.Len(t, ll.Series[0].Lags, 4)
	assert.True(t, ll.Range.Start.Equal(r.Start))

	regimes, err := f.svc.Regimes(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 4, regimes.K)

	vol, err := f.svc.Volatility(ctx, r)
	require.NoError(t, err)
	assert.Len(t, vol.ByFlow, 3)

	sum, err := f.svc.Summary(ctx, r)
	require.NoError(t, err)
	assert.True(t, sum.Range.Start.Equal(r.Start))

	full, err := f.svc.Summary(ctx, Range{})
	require.NoError(t, err)
	cur, _ := f.svc.Current(ctx)
	assert.Same(t, cur.Summary, full)

	cmp, err := f.svc.Comparison(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 100, cmp.TotalDays)
}

func TestService_Sufficiency(t *testing.T) {
	f := setup(t, 30)

	res, err := f.svc.Sufficiency(context.Background())
	require.NoError(t, err)
	assert.False(t, res.AllPass)
}

func TestService_RunStopsOnCancel(t *testing.T) {
	f := setup(t, 20)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.svc.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool {
		f.publisher.mu.Lock()
		defer f.publisher.mu.Unlock()
		return len(f.publisher.points) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
