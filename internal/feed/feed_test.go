package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-index-lab/internal/domain"
)

func TestParseDay(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-05-06", domain.Day(2024, time.May, 6), false},
		{" 2024-05-06 ", domain.Day(2024, time.May, 6), false},
		{"2024-05-06T23:30:00Z", domain.Day(2024, time.May, 6), false},
		{"2024-05-06T23:30:00-02:00", domain.Day(2024, time.May, 7), false},
		{"06.05.2024", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := parseDay(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrBadPayload, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.in, got)
	}
}

func TestPriceDocument_Closes(t *testing.T) {
	d1 := domain.Day(2024, time.May, 1)
	doc := priceDocument{Prices: [][2]float64{
		{float64(d1.UnixMilli()), 100},
		{float64(d1.Add(12 * time.Hour).UnixMilli()), 105},
		{float64(d1.AddDate(0, 0, 1).UnixMilli()), 0},
		{float64(d1.AddDate(0, 0, 2).UnixMilli()), 110},
	}}

	closes := doc.closes()
	assert.Len(t, closes, 2)
	assert.Equal(t, 100.0, closes[d1])
	assert.Equal(t, 110.0, closes[d1.AddDate(0, 0, 2)])
}

func TestMerge(t *testing.T) {
	d1 := domain.Day(2024, time.May, 1)
	d2 := d1.AddDate(0, 0, 1)
	days := []domain.DailyMetric{
		{Date: d2, TxCount: 2, ReferencePrice: domain.Float64Ptr(999)},
		{Date: d1, TxCount: 1},
	}

	series, err := Merge(days, map[time.Time]float64{d1: 50})
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, 1, series.At(0).TxCount)
	assert.Equal(t, 50.0, *series.At(0).ReferencePrice)
	assert.Nil(t, series.At(1).ReferencePrice, "stale price is replaced by the feed")
	assert.Equal(t, 999.0, *days[0].ReferencePrice, "input is not modified")

	_, err = Merge([]domain.DailyMetric{{Date: d1}, {Date: d1}}, nil)
	assert.ErrorIs(t, err, domain.ErrMalformedSeries)
}
