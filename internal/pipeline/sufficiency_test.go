package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/fixture"
	"whale-index-lab/internal/storage/memory"
)

func findCheck(t *testing.T, res SufficiencyResult, name string) SufficiencyCheck {
	t.Helper()
	for _, c := range res.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not found", name)
	return SufficiencyCheck{}
}

func TestCheckSeries_AllPass(t *testing.T) {
	res := CheckSeries(fixture.Synthetic(200, 1), Default())

	assert.True(t, res.AllPass)
	assert.Empty(t, res.Errors)
	assert.Len(t, res.Checks, 7)
}

func TestCheckSeries_ShortHistory(t *testing.T) {
	res := CheckSeries(fixture.Synthetic(60, 1), Default())

	assert.False(t, res.AllPass)
	assert.False(t, findCheck(t, res, "Percentile history").Pass)
	assert.True(t, findCheck(t, res, "Activity baseline").Pass)
	assert.True(t, findCheck(t, res, "Lead-lag pairs").Pass)
	assert.Equal(t, "60 days", findCheck(t, res, "Percentile history").Actual)
}

func TestCheckSeries_GapsPricesAndZeroFlow(t *testing.T) {
	days := []domain.DailyMetric{
		{Date: domain.Day(2024, time.February, 1), TxCount: 1, ExchangeInflow: 1, ReferencePrice: domain.Float64Ptr(10)},
		{Date: domain.Day(2024, time.February, 2), TxCount: 1},
		{Date: domain.Day(2024, time.February, 5), TxCount: 1, ExchangeOutflow: 2, ReferencePrice: domain.Float64Ptr(11)},
	}
	series, err := domain.NewSeries(days)
	require.NoError(t, err)

	res := CheckSeries(series, Default())

	gaps := findCheck(t, res, "Calendar gaps")
	assert.False(t, gaps.Pass)
	assert.Equal(t, "2 missing days", gaps.Actual)
	assert.Contains(t, res.Errors, "missing day 2024-02-03")
	assert.Contains(t, res.Errors, "missing day 2024-02-04")

	prices := findCheck(t, res, "Reference price coverage")
	assert.False(t, prices.Pass)
	assert.Equal(t, "66.7%", prices.Actual)

	zero := findCheck(t, res, "Zero exchange-flow days")
	assert.Equal(t, "1", zero.Actual)
	assert.Contains(t, res.Errors, "zero exchange flow on 2024-02-02")
}

func TestCheckSeries_Empty(t *testing.T) {
	res := CheckSeries(domain.Series{}, Default())

	assert.False(t, res.AllPass)
	assert.Equal(t, "0.0%", findCheck(t, res, "Reference price coverage").Actual)
	assert.True(t, findCheck(t, res, "Calendar gaps").Pass)
}

func TestSufficiencyChecker_Check(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDailyMetricStore()
	_, err := LoadFixtures(ctx, store, nil, 40, 5)
	require.NoError(t, err)

	checker := NewSufficiencyChecker(store, Default())
	res, err := checker.Check(ctx, fixture.DefaultStart, fixture.DefaultStart.AddDate(0, 0, 9))
	require.NoError(t, err)

	assert.Equal(t, "10 days", findCheck(t, *res, "Activity baseline").Actual)
	assert.True(t, findCheck(t, *res, "Calendar gaps").Pass)
}
