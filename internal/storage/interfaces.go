package storage

import (
	"context"
	"time"

	"whale-index-lab/internal/domain"
)

// DailyMetricStore provides access to daily_metrics storage.
// Keyed by calendar date.
type DailyMetricStore interface {
	// InsertBulk adds days atomically. Fails the entire batch with
	// ErrDuplicateKey if any date is already stored or repeated.
	InsertBulk(ctx context.Context, days []domain.DailyMetric) error

	// GetByDateRange retrieves days within [start, end] (inclusive),
	// ordered by date ASC. A zero bound is open.
	GetByDateRange(ctx context.Context, start, end time.Time) ([]domain.DailyMetric, error)

	// LatestDate returns the most recent stored date.
	// Returns ErrNotFound if the store is empty.
	LatestDate(ctx context.Context) (time.Time, error)
}

// IndexPointStore provides access to index_points storage.
// Keyed by (computed_at_ms, date): each computation run is stored whole.
type IndexPointStore interface {
	// InsertBulk adds points atomically. Fails the entire batch with
	// ErrDuplicateKey on a repeated (computed_at_ms, date).
	InsertBulk(ctx context.Context, points []domain.IndexPoint) error

	// LatestRun returns the computed_at_ms of the most recent run.
	// Returns ErrNotFound if the store is empty.
	LatestRun(ctx context.Context) (int64, error)

	// GetRun retrieves the points of one run within [start, end]
	// (inclusive), ordered by date ASC. A zero bound is open.
	GetRun(ctx context.Context, computedAtMs int64, start, end time.Time) ([]domain.IndexPoint, error)
}

// IngestProgress records how far a feed source has been ingested.
type IngestProgress struct {
	Source   string    // feed name, e.g. "whale-metrics"
	LastDate time.Time // last stored calendar day
	Days     int       // days stored by the last ingest
}

// IngestProgressStore persists ingest state per source so that repeated
// ingests only append new days.
type IngestProgressStore interface {
	// GetLastIngested returns progress for source.
	// Returns ErrNotFound if nothing has been ingested yet.
	GetLastIngested(ctx context.Context, source string) (*IngestProgress, error)

	// SetLastIngested upserts progress for p.Source.
	SetLastIngested(ctx context.Context, p *IngestProgress) error
}
