package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/fixture"
)

func pricedSeries(prices []float64) domain.AnnotatedSeries {
	return domain.Annotate(fixture.Build(fixture.DefaultStart, len(prices), func(i int) domain.DailyMetric {
		m := domain.DailyMetric{TxCount: 1, Volume: 1}
		if prices[i] > 0 {
			m.ReferencePrice = domain.Float64Ptr(prices[i])
		}
		return m
	}))
}

func TestAnnotatePrices_Return1D(t *testing.T) {
	in := pricedSeries([]float64{100, 110, 0, 121, 121})
	out := AnnotatePrices(in, 3)
	require.Len(t, out, 5)

	assert.Nil(t, out[0].Return1D, "first day has no previous price")
	require.NotNil(t, out[1].Return1D)
	assert.InDelta(t, 0.10, *out[1].Return1D, 1e-12)
	assert.Nil(t, out[2].Return1D, "missing price")
	assert.Nil(t, out[3].Return1D, "previous price missing")
	require.NotNil(t, out[4].Return1D)
	assert.InDelta(t, 0.0, *out[4].Return1D, 1e-12)
}

func TestAnnotatePrices_Volatility(t *testing.T) {
	in := pricedSeries([]float64{100, 110, 0, 121, 121})
	out := AnnotatePrices(in, 3)

	assert.Nil(t, out[0].PriceVolatility, "needs two prices")

	want := math.Sqrt(50) / 105
	require.NotNil(t, out[1].PriceVolatility)
	assert.InDelta(t, want, *out[1].PriceVolatility, 1e-12)
	require.NotNil(t, out[2].PriceVolatility)
	assert.InDelta(t, want, *out[2].PriceVolatility, 1e-12)

	require.NotNil(t, out[4].PriceVolatility)
	assert.InDelta(t, 0.0, *out[4].PriceVolatility, 1e-12)
}

func TestAnnotatePrices_DoesNotMutateInput(t *testing.T) {
	in := pricedSeries([]float64{100, 101, 102})
	_ = AnnotatePrices(in, 7)
	for i, d := range in {
		if d.Return1D != nil || d.PriceVolatility != nil {
			t.Errorf("input day %d was annotated", i)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"price window", func(c *Config) { c.PriceWindow = 1 }},
		{"negative lag", func(c *Config) { c.LeadLag.MaxLag = -1 }},
		{"min pairs", func(c *Config) { c.LeadLag.MinPairs = 1 }},
		{"threshold", func(c *Config) { c.LeadLag.Threshold = 1.5 }},
		{"k", func(c *Config) { c.Regime.K = 0 }},
		{"iterations", func(c *Config) { c.Regime.MaxIterations = 0 }},
		{"high percentile", func(c *Config) { c.Volatility.HighPercentile = 1 }},
		{"low percentile", func(c *Config) { c.Volatility.LowPercentile = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
