package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/observability"
	"whale-index-lab/internal/storage"
)

// DailyMetricStore implements storage.DailyMetricStore using PostgreSQL.
type DailyMetricStore struct {
	pool *Pool
}

// NewDailyMetricStore creates a new DailyMetricStore.
func NewDailyMetricStore(pool *Pool) *DailyMetricStore {
	return &DailyMetricStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DailyMetricStore = (*DailyMetricStore)(nil)

// InsertBulk adds days atomically. Fails entire batch on any duplicate date.
func (s *DailyMetricStore) InsertBulk(ctx context.Context, days []domain.DailyMetric) (err error) {
	defer observe("insert_daily_metrics", time.Now(), &err)
	if len(days) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO daily_metrics (
			date, tx_count, volume, exchange_inflow, exchange_outflow, reference_price
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, d := range days {
		if d.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			domain.TruncateDay(d.Date),
			d.TxCount,
			d.Volume,
			d.ExchangeInflow,
			d.ExchangeOutflow,
			d.ReferencePrice,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert daily metric %s: %w", domain.FormatDate(d.Date), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByDateRange retrieves days within [start, end] (inclusive), ordered by date ASC.
func (s *DailyMetricStore) GetByDateRange(ctx context.Context, start, end time.Time) (_ []domain.DailyMetric, err error) {
	defer observe("get_daily_metrics", time.Now(), &err)
	query := `
		SELECT date, tx_count, volume, exchange_inflow, exchange_outflow, reference_price
		FROM daily_metrics
		WHERE ($1::date IS NULL OR date >= $1::date)
		  AND ($2::date IS NULL OR date <= $2::date)
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, nullableDate(start), nullableDate(end))
	if err != nil {
		return nil, fmt.Errorf("get daily metrics by date range: %w", err)
	}
	defer rows.Close()

	return scanDailyMetrics(rows)
}

// LatestDate returns the most recent stored date.
func (s *DailyMetricStore) LatestDate(ctx context.Context) (time.Time, error) {
	var latest time.Time
	err := s.pool.QueryRow(ctx, `SELECT date FROM daily_metrics ORDER BY date DESC LIMIT 1`).Scan(&latest)
	if err != nil {
		if isNotFoundError(err) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("get latest daily metric date: %w", err)
	}
	return domain.TruncateDay(latest), nil
}

// scanDailyMetrics scans multiple rows into a slice of DailyMetric.
func scanDailyMetrics(rows pgx.Rows) ([]domain.DailyMetric, error) {
	var days []domain.DailyMetric

	for rows.Next() {
		var d domain.DailyMetric
		err := rows.Scan(
			&d.Date,
			&d.TxCount,
			&d.Volume,
			&d.ExchangeInflow,
			&d.ExchangeOutflow,
			&d.ReferencePrice,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily metric: %w", err)
		}
		d.Date = domain.TruncateDay(d.Date)
		days = append(days, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily metrics: %w", err)
	}
	return days, nil
}

// observe records the duration and outcome of one store operation.
func observe(operation string, start time.Time, err *error) {
	observability.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), *err)
}
