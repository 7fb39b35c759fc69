// Package ingestion appends upstream whale metrics to the daily metric store.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/feed"
	"whale-index-lab/internal/logger"
	"whale-index-lab/internal/observability"
	"whale-index-lab/internal/storage"
)

// DefaultSourceName is the progress key for the upstream feed.
const DefaultSourceName = "whale-metrics"

// Manager moves days from a feed source into storage.
// Stored days are immutable: only days after the latest stored date are
// appended, and duplicates are rejected by the storage layer.
type Manager struct {
	source     feed.Source
	store      storage.DailyMetricStore
	progress   storage.IngestProgressStore
	sourceName string
	log        *logger.Logger
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Source     feed.Source
	Store      storage.DailyMetricStore
	Progress   storage.IngestProgressStore // optional
	SourceName string                      // default DefaultSourceName
	Logger     *logger.Logger
}

// NewManager creates a new ingestion manager.
func NewManager(opts ManagerOptions) *Manager {
	name := opts.SourceName
	if name == "" {
		name = DefaultSourceName
	}
	return &Manager{
		source:     opts.Source,
		store:      opts.Store,
		progress:   opts.Progress,
		sourceName: name,
		log:        logger.OrNop(opts.Logger).Named("ingestion"),
	}
}

// Result summarizes one ingest.
type Result struct {
	Fetched         int
	Stored          int
	Skipped         int       // fetched days already stored
	LastDate        time.Time // newest stored day after the ingest, zero if none
	PricesAvailable bool
}

// Ingest fetches the full upstream history and stores the days newer than
// the latest stored date.
func (m *Manager) Ingest(ctx context.Context) (*Result, error) {
	if m.source == nil || m.store == nil {
		return nil, errors.New("ingestion: source and store are required")
	}

	snap, err := m.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	latest, err := m.store.LatestDate(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		latest = time.Time{}
	case err != nil:
		return nil, fmt.Errorf("latest stored date: %w", err)
	}

	res := &Result{
		Fetched:         snap.Series.Len(),
		LastDate:        latest,
		PricesAvailable: snap.PricesAvailable,
	}
	fresh := NewDays(snap.Series, latest)
	res.Skipped = res.Fetched - len(fresh)

	if len(fresh) > 0 {
		if err := m.store.InsertBulk(ctx, fresh); err != nil {
			return nil, fmt.Errorf("store daily metrics: %w", err)
		}
		res.Stored = len(fresh)
		res.LastDate = fresh[len(fresh)-1].Date
	}

	if m.progress != nil && res.Stored > 0 {
		err := m.progress.SetLastIngested(ctx, &storage.IngestProgress{
			Source:   m.sourceName,
			LastDate: res.LastDate,
			Days:     res.Stored,
		})
		if err != nil {
			return nil, fmt.Errorf("record ingest progress: %w", err)
		}
	}

	if res.Stored > 0 {
		observability.RecordIngest(res.Stored, res.LastDate.Unix())
	}
	m.log.Infow("ingest complete",
		"source", m.sourceName,
		"fetched", res.Fetched,
		"stored", res.Stored,
		"skipped", res.Skipped,
		"prices", res.PricesAvailable,
	)
	return res, nil
}

// NewDays returns the days of series strictly after latest. A zero latest
// returns every day.
func NewDays(series domain.Series, latest time.Time) []domain.DailyMetric {
	if latest.IsZero() {
		return series.Days()
	}
	var out []domain.DailyMetric
	for i := 0; i < series.Len(); i++ {
		if d := series.At(i); d.Date.After(latest) {
			out = append(out, d)
		}
	}
	return out
}
