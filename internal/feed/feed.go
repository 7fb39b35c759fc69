// Package feed fetches daily whale metrics and reference prices from the
// upstream JSON documents and merges them into a validated series.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"whale-index-lab/internal/domain"
)

// Feed names used in metrics and errors.
const (
	FeedMetrics = "metrics"
	FeedPrices  = "prices"
)

var (
	// ErrFeedUnavailable is returned when an upstream document could not be
	// fetched after retries or the circuit breaker is open.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrBadPayload is returned when a document does not match the expected
	// shape. Bad payloads are not retried.
	ErrBadPayload = errors.New("bad feed payload")
)

// Snapshot is one merged fetch of both feeds.
type Snapshot struct {
	Series          domain.Series
	GeneratedAt     time.Time // upstream generation time, zero when absent
	PricesAvailable bool
	FetchedAt       time.Time
}

// Source produces snapshots of the full upstream history.
type Source interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// metricsDocument is the daily-metrics JSON document.
type metricsDocument struct {
	GeneratedAt  string      `json:"generated_at"`
	TotalDays    int         `json:"total_days"`
	DailyMetrics []metricRow `json:"daily_metrics"`
}

type metricRow struct {
	Date            string  `json:"date"`
	WhaleTxCount    int     `json:"whale_tx_count"`
	WhaleTxVolume   float64 `json:"whale_tx_volume_btc"`
	ExchangeInflow  float64 `json:"exchange_inflow"`
	ExchangeOutflow float64 `json:"exchange_outflow"`
}

// priceDocument is the market-chart JSON document: [[unix_ms, close], ...].
type priceDocument struct {
	Prices [][2]float64 `json:"prices"`
}

// parseDay accepts YYYY-MM-DD or an RFC 3339 timestamp and returns its
// UTC calendar day.
func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := domain.ParseDate(s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unparsable date %q", ErrBadPayload, s)
	}
	return domain.TruncateDay(t), nil
}

func (doc metricsDocument) days() ([]domain.DailyMetric, error) {
	if doc.DailyMetrics == nil {
		return nil, fmt.Errorf("%w: missing daily_metrics", ErrBadPayload)
	}
	out := make([]domain.DailyMetric, 0, len(doc.DailyMetrics))
	for i, row := range doc.DailyMetrics {
		date, err := parseDay(row.Date)
		if err != nil {
			return nil, fmt.Errorf("daily_metrics[%d]: %w", i, err)
		}
		out = append(out, domain.DailyMetric{
			Date:            date,
			TxCount:         row.WhaleTxCount,
			Volume:          row.WhaleTxVolume,
			ExchangeInflow:  row.ExchangeInflow,
			ExchangeOutflow: row.ExchangeOutflow,
		})
	}
	return out, nil
}

func (doc metricsDocument) generatedAt() time.Time {
	if doc.GeneratedAt == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, doc.GeneratedAt)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// closes maps each UTC calendar day to its first close. Non-positive
// closes are dropped.
func (doc priceDocument) closes() map[time.Time]float64 {
	out := make(map[time.Time]float64, len(doc.Prices))
	for _, p := range doc.Prices {
		if !(p[1] > 0) {
			continue
		}
		day := domain.TruncateDay(time.UnixMilli(int64(p[0])))
		if _, ok := out[day]; !ok {
			out[day] = p[1]
		}
	}
	return out
}

// Merge attaches closes to days by calendar date, sorts by date and
// validates the result. A nil closes map yields a series without prices.
func Merge(days []domain.DailyMetric, closes map[time.Time]float64) (domain.Series, error) {
	merged := make([]domain.DailyMetric, len(days))
	copy(merged, days)
	for i := range merged {
		merged[i].ReferencePrice = nil
		if p, ok := closes[domain.TruncateDay(merged[i].Date)]; ok {
			merged[i].ReferencePrice = domain.Float64Ptr(p)
		}
	}
	return domain.SortedSeries(merged)
}
