package postgres

import (
	"context"
	"fmt"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/storage"
)

// IngestProgressStore is a PostgreSQL implementation of storage.IngestProgressStore.
// One row per feed source in ingest_progress.
type IngestProgressStore struct {
	pool *Pool
}

// NewIngestProgressStore creates a new PostgreSQL ingest progress store.
func NewIngestProgressStore(pool *Pool) *IngestProgressStore {
	return &IngestProgressStore{pool: pool}
}

var _ storage.IngestProgressStore = (*IngestProgressStore)(nil)

// GetLastIngested returns progress for source.
func (s *IngestProgressStore) GetLastIngested(ctx context.Context, source string) (*storage.IngestProgress, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT source, last_date, days
		FROM ingest_progress
		WHERE source = $1
	`, source)

	var p storage.IngestProgress
	if err := row.Scan(&p.Source, &p.LastDate, &p.Days); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ingest progress: %w", err)
	}
	p.LastDate = domain.TruncateDay(p.LastDate)
	return &p, nil
}

// SetLastIngested upserts progress for p.Source.
func (s *IngestProgressStore) SetLastIngested(ctx context.Context, p *storage.IngestProgress) error {
	if p == nil || p.Source == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_progress (source, last_date, days, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (source) DO UPDATE
		SET last_date = EXCLUDED.last_date,
		    days = EXCLUDED.days,
		    updated_at = NOW()
	`, p.Source, domain.TruncateDay(p.LastDate), p.Days)
	if err != nil {
		return fmt.Errorf("set ingest progress: %w", err)
	}
	return nil
}
