package analysis

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/fixture"
	"whale-index-lab/internal/stats"
)

// outflowLeadsReturns builds n priced days where the forward return from
// day t+2 to t+3 is a linear function of the exchange outflow at t.
// Inflow is independent noise. Returns come from AnnotatePrices.
func outflowLeadsReturns(n int, seed int64) domain.AnnotatedSeries {
	rng := rand.New(rand.NewSource(seed))
	s := domain.Annotate(fixture.Constant(n, 1, 1, 0, 0))
	outflows := make([]float64, n)
	for i := range s {
		s[i].ExchangeOutflow = 100 + 50*rng.Float64()
		s[i].ExchangeInflow = 100 + 50*rng.Float64()
		outflows[i] = s[i].ExchangeOutflow
	}
	mean := stats.Mean(outflows)
	price := 100.0
	for t := range s {
		if t >= 3 {
			price *= 1 + 0.001*(s[t-3].ExchangeOutflow-mean)
		}
		p := price
		s[t].ReferencePrice = &p
	}
	return AnnotatePrices(s, DefaultConfig().PriceWindow)
}

func TestLeadLag_FindsPlantedLag(t *testing.T) {
	series := outflowLeadsReturns(200, 11)
	cfg := DefaultConfig().LeadLag

	report := LeadLag(series, cfg)
	require.Len(t, report.Series, 5)
	assert.Equal(t, 7, report.MaxLag)

	out, ok := report.Get(SeriesOutflow)
	require.True(t, ok)
	require.NoError(t, out.Err)
	require.Len(t, out.Lags, 8)
	require.NotNil(t, out.BestLag)
	assert.Equal(t, 2, *out.BestLag)
	require.NotNil(t, out.BestCorrelation)
	assert.InDelta(t, 1.0, *out.BestCorrelation, 1e-9)
	assert.Equal(t, "higher values precede higher returns (lag 2)", out.Interpretation)

	assert.Equal(t, 199, out.Lags[0].Pairs)
	assert.Equal(t, 197, out.Lags[2].Pairs)
	assert.Equal(t, 192, out.Lags[7].Pairs)

	assert.True(t, report.Findings.OutflowBullish)
	assert.Equal(t, SeriesOutflow, report.Findings.BestPredictor)
}

func TestLeadLag_ConstantSeriesHasNoCorrelation(t *testing.T) {
	series := outflowLeadsReturns(200, 3)
	report := LeadLag(series, DefaultConfig().LeadLag)

	intent, ok := report.Get(SeriesIntent)
	require.True(t, ok)
	assert.Nil(t, intent.BestLag)
	assert.Nil(t, intent.BestCorrelation)
	for _, lc := range intent.Lags {
		assert.Nil(t, lc.Correlation, "lag %d", lc.Lag)
	}
	assert.False(t, report.Findings.IntentPredictive)

	var ide *domain.InsufficientDataError
	require.True(t, errors.As(intent.Err, &ide))
	assert.Equal(t, "lead_lag:"+SeriesIntent, ide.Metric)
}

func TestLeadLag_BelowMinPairs(t *testing.T) {
	s := domain.Annotate(fixture.Constant(10, 1, 1, 0, 0))
	for i := range s {
		s[i].ExchangeInflow = float64(i)
		r := 0.01 * float64(i%3)
		s[i].Return1D = &r
	}
	cfg := LeadLagConfig{MaxLag: 3, MinPairs: 20, Threshold: 0.1}

	report := LeadLag(s, cfg)
	in, ok := report.Get(SeriesInflow)
	require.True(t, ok)
	assert.Nil(t, in.BestCorrelation)
	assert.Equal(t, "insufficient data", in.Interpretation)

	var ide *domain.InsufficientDataError
	require.True(t, errors.As(in.Err, &ide))
	assert.True(t, errors.Is(in.Err, domain.ErrInsufficientData))
	assert.Equal(t, 20, ide.Required)
	assert.Equal(t, 9, ide.Available, "lag 0 pairs each day with the next day's return")

	assert.Empty(t, report.Findings.BestPredictor)
	assert.False(t, report.Findings.InflowBearish)
}

func TestLeadLag_NegativeRelationship(t *testing.T) {
	s := outflowLeadsReturns(120, 5)
	// returns now fall with outflow
	for i := range s {
		if s[i].Return1D != nil {
			r := -*s[i].Return1D
			s[i].Return1D = &r
		}
	}
	report := LeadLag(s, DefaultConfig().LeadLag)
	out, _ := report.Get(SeriesOutflow)
	require.NotNil(t, out.BestCorrelation)
	assert.InDelta(t, -1.0, *out.BestCorrelation, 1e-9)
	assert.Equal(t, "higher values precede lower returns (lag 2)", out.Interpretation)
	assert.False(t, report.Findings.OutflowBullish)
}

func TestLeadLag_Deterministic(t *testing.T) {
	s := outflowLeadsReturns(150, 21)
	a := LeadLag(s, DefaultConfig().LeadLag)
	b := LeadLag(s, DefaultConfig().LeadLag)
	assert.Equal(t, a, b)
}

func TestLeadLag_PairsWithReturnAfterDay(t *testing.T) {
	// Outflow at d equals the move from d to d+1, so lag 0 is exact.
	s := domain.Annotate(fixture.Constant(60, 1, 1, 0, 0))
	rng := rand.New(rand.NewSource(7))
	price := 100.0
	for i := range s {
		p := price
		s[i].ReferencePrice = &p
		r := 0.02 * (rng.Float64() - 0.5)
		s[i].ExchangeOutflow = 100 + 1000*r
		price *= 1 + r
	}
	annotated := AnnotatePrices(s, DefaultConfig().PriceWindow)

	cfg := LeadLagConfig{MaxLag: 3, MinPairs: 10, Threshold: 0.1}
	out, ok := LeadLag(annotated, cfg).Get(SeriesOutflow)
	require.True(t, ok)
	require.NotNil(t, out.BestLag)
	assert.Equal(t, 0, *out.BestLag)
	assert.InDelta(t, 1.0, *out.BestCorrelation, 1e-9)
	assert.Equal(t, 59, out.Lags[0].Pairs, "last day has no next-day price")
}
