package service

import (
	"context"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/stats"
)

// IndexStats summarizes one index column. StdDev is the sample standard
// deviation, 0 for a single day.
type IndexStats struct {
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	StdDev float64
}

// Statistics describes the indices over a range.
type Statistics struct {
	TotalDays int
	Range     domain.DateRange
	Activity  IndexStats
	Intent    IndexStats
	Latest    domain.AnnotatedDay
}

func indexStats(values []float64) IndexStats {
	lo, hi := stats.MinMax(values)
	return IndexStats{
		Mean:   stats.Mean(values),
		Median: stats.Median(values),
		Min:    lo,
		Max:    hi,
		StdDev: stats.StdDev(values),
	}
}

// Statistics computes index statistics within r.
func (s *Service) Statistics(ctx context.Context, r Range) (*Statistics, error) {
	series, err := s.Series(ctx, r)
	if err != nil {
		return nil, err
	}
	latest, _ := series.Latest()
	return &Statistics{
		TotalDays: len(series),
		Range:     series.DateRange(),
		Activity:  indexStats(series.Activities()),
		Intent:    indexStats(series.Intents()),
		Latest:    latest,
	}, nil
}
