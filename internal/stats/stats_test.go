package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	if got := Mean(values); got != 5 {
		t.Errorf("expected mean 5, got %f", got)
	}
	// population variance 4 → sample variance 32/7
	want := math.Sqrt(32.0 / 7.0)
	if got := StdDev(values); math.Abs(got-want) > 1e-12 {
		t.Errorf("expected stddev %f, got %f", want, got)
	}
	if got := PopulationStdDev(values); got != 2 {
		t.Errorf("expected population stddev 2, got %f", got)
	}
}

func TestStdDev_FewerThanTwo(t *testing.T) {
	if StdDev(nil) != 0 || StdDev([]float64{3}) != 0 {
		t.Error("stddev of fewer than 2 values should be 0")
	}
	if Mean(nil) != 0 {
		t.Error("mean of empty input should be 0")
	}
}

func TestPercentile_Interpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	assert.Equal(t, 3.0, Percentile(sorted, 0.5))
	assert.Equal(t, 1.0, Percentile(sorted, 0))
	assert.Equal(t, 5.0, Percentile(sorted, 1))
	assert.InDelta(t, 1.4, Percentile(sorted, 0.1), 1e-12)
	assert.InDelta(t, 4.6, Percentile(sorted, 0.9), 1e-12)
	assert.Equal(t, 0.0, Percentile(nil, 0.5))
	assert.Equal(t, 7.0, Percentile([]float64{7}, 0.3))
}

func TestMedian_UnsortedInput(t *testing.T) {
	in := []float64{9, 1, 5, 3}
	assert.Equal(t, 4.0, Median(in))
	assert.Equal(t, []float64{9, 1, 5, 3}, in, "input must not be reordered")
}

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}

	r, ok := Pearson(x, []float64{2, 4, 6, 8, 10})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-12)

	r, ok = Pearson(x, []float64{5, 4, 3, 2, 1})
	assert.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-12)

	_, ok = Pearson(x, []float64{3, 3, 3, 3, 3})
	assert.False(t, ok, "zero variance is undefined")

	_, ok = Pearson(x, []float64{1, 2})
	assert.False(t, ok, "length mismatch is undefined")
}

func TestMaxDrawdown(t *testing.T) {
	// cumulative: 0.1, 0.3, 0.0, -0.1, 0.2 → peak 0.3, trough -0.1
	got := MaxDrawdown([]float64{0.1, 0.2, -0.3, -0.1, 0.3})
	assert.InDelta(t, 0.4, got, 1e-12)

	// all losses: peak stays at 0
	assert.InDelta(t, 0.3, MaxDrawdown([]float64{-0.1, -0.2}), 1e-12)
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

func TestMaxConsecutive(t *testing.T) {
	losses := func(v float64) bool { return v <= 0 }
	assert.Equal(t, 3, MaxConsecutive([]float64{1, -1, 0, -2, 1, -1}, losses))
	assert.Equal(t, 0, MaxConsecutive([]float64{1, 2}, losses))
}

func TestMinMax(t *testing.T) {
	lo, hi := MinMax([]float64{3, -1, 8})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 8.0, hi)
}
