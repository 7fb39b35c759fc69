package activity

import (
	"fmt"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/stats"
)

// HighActivityThreshold marks high-activity days in the comparison report.
const HighActivityThreshold = 75

// bucketWidth is the histogram bucket size on the 0..100 scale.
const bucketWidth = 5

// VariantStats summarizes one index variant.
type VariantStats struct {
	Mean       float64
	Median     float64
	StdDev     float64
	Min        int
	Max        int
	CountAt100 int
	PctAt100   float64
}

// Bucket is one histogram bucket (Low, High]. The first bucket also holds Low.
type Bucket struct {
	Label  string
	Low    int
	High   int
	Static int
	Adapt  int
}

// Sensitivity compares behavior on high-activity days.
type Sensitivity struct {
	HighDaysStatic     int
	HighDaysAdaptive   int
	HighDaysChangePct  float64
	AvgHighStatic      float64
	AvgHighAdaptive    float64
	HighCorrelation    *float64 // nil when undefined
	HighActivityCutoff int
}

// WeightStats summarizes the adaptive weights.
type WeightStats struct {
	MeanTx     float64
	MeanVolume float64
	StdTx      float64
	StdVolume  float64
	MinTx      float64
	MaxTx      float64
}

// Comparison contrasts the static and adaptive Activity Index.
type Comparison struct {
	Range       domain.DateRange
	TotalDays   int
	Static      VariantStats // unclipped v1
	Adaptive    VariantStats
	Histogram   []Bucket
	Overflow    int // static days above 100, outside the histogram
	Sensitivity Sensitivity
	Weights     WeightStats

	HigherDispersionAdaptive bool
	MoreExtremeAdaptive      bool
	MoreSensitiveAdaptive    bool
}

// Compare builds the v1/v2 comparison report from a series carrying both
// variants.
func Compare(series domain.AnnotatedSeries) Comparison {
	n := len(series)
	c := Comparison{Range: series.DateRange(), TotalDays: n}
	if n == 0 {
		return c
	}

	static := series.Column(func(d domain.AnnotatedDay) float64 { return float64(d.ActivityV1Raw) })
	adaptive := series.Activities()

	c.Static = variantStats(static)
	c.Adaptive = variantStats(adaptive)
	c.Histogram, c.Overflow = histogram(static, adaptive)
	c.Sensitivity = sensitivity(static, adaptive)
	c.Weights = weightStats(series)

	c.HigherDispersionAdaptive = c.Adaptive.StdDev > c.Static.StdDev
	c.MoreExtremeAdaptive = c.Adaptive.Max > c.Static.Max
	c.MoreSensitiveAdaptive = c.Sensitivity.HighDaysAdaptive > c.Sensitivity.HighDaysStatic
	return c
}

func variantStats(values []float64) VariantStats {
	lo, hi := stats.MinMax(values)
	at100 := 0
	for _, v := range values {
		if v == 100 {
			at100++
		}
	}
	return VariantStats{
		Mean:       stats.Mean(values),
		Median:     stats.Median(values),
		StdDev:     stats.StdDev(values),
		Min:        int(lo),
		Max:        int(hi),
		CountAt100: at100,
		PctAt100:   100 * float64(at100) / float64(len(values)),
	}
}

func histogram(static, adaptive []float64) ([]Bucket, int) {
	buckets := make([]Bucket, 0, 100/bucketWidth)
	for lo := 0; lo < 100; lo += bucketWidth {
		buckets = append(buckets, Bucket{
			Label: fmt.Sprintf("%d-%d", lo, lo+bucketWidth),
			Low:   lo,
			High:  lo + bucketWidth,
		})
	}
	index := func(v float64) int {
		if v < 0 || v > 100 {
			return -1
		}
		if v <= bucketWidth {
			return 0
		}
		i := int(v) / bucketWidth
		if float64(i*bucketWidth) == v {
			i-- // right-closed buckets
		}
		return i
	}

	overflow := 0
	for _, v := range static {
		if i := index(v); i >= 0 {
			buckets[i].Static++
		} else {
			overflow++
		}
	}
	for _, v := range adaptive {
		if i := index(v); i >= 0 {
			buckets[i].Adapt++
		}
	}
	return buckets, overflow
}

func sensitivity(static, adaptive []float64) Sensitivity {
	s := Sensitivity{HighActivityCutoff: HighActivityThreshold}
	var highStatic, highAdaptive, unionStatic, unionAdaptive []float64
	for i := range static {
		hs := static[i] > HighActivityThreshold
		ha := adaptive[i] > HighActivityThreshold
		if hs {
			highStatic = append(highStatic, static[i])
		}
		if ha {
			highAdaptive = append(highAdaptive, adaptive[i])
		}
		if hs || ha {
			unionStatic = append(unionStatic, static[i])
			unionAdaptive = append(unionAdaptive, adaptive[i])
		}
	}
	s.HighDaysStatic = len(highStatic)
	s.HighDaysAdaptive = len(highAdaptive)
	if s.HighDaysStatic > 0 {
		s.HighDaysChangePct = 100 * float64(s.HighDaysAdaptive-s.HighDaysStatic) / float64(s.HighDaysStatic)
	}
	s.AvgHighStatic = stats.Mean(highStatic)
	s.AvgHighAdaptive = stats.Mean(highAdaptive)
	if r, ok := stats.Pearson(unionStatic, unionAdaptive); ok {
		s.HighCorrelation = &r
	}
	return s
}

func weightStats(series domain.AnnotatedSeries) WeightStats {
	wtx := series.Column(func(d domain.AnnotatedDay) float64 { return d.WeightTx })
	wvol := series.Column(func(d domain.AnnotatedDay) float64 { return d.WeightVolume })
	lo, hi := stats.MinMax(wtx)
	return WeightStats{
		MeanTx:     stats.Mean(wtx),
		MeanVolume: stats.Mean(wvol),
		StdTx:      stats.StdDev(wtx),
		StdVolume:  stats.StdDev(wvol),
		MinTx:      lo,
		MaxTx:      hi,
	}
}
