package clickhouse

import (
	"context"
	"fmt"
	"time"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/observability"
	"whale-index-lab/internal/storage"
)

// IndexPointStore implements storage.IndexPointStore using ClickHouse.
// MergeTree does not enforce keys, so duplicates are checked before insert.
type IndexPointStore struct {
	conn *Conn
}

// NewIndexPointStore creates a new IndexPointStore.
func NewIndexPointStore(conn *Conn) *IndexPointStore {
	return &IndexPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.IndexPointStore = (*IndexPointStore)(nil)

const indexPointColumns = `computed_at_ms, date, activity, activity_v1, intent, intent_signal,
	momentum, momentum_signal, confidence, confidence_level, weight_tx, weight_volume`

// InsertBulk adds points. Fails entire batch on duplicate (computed_at_ms, date).
func (s *IndexPointStore) InsertBulk(ctx context.Context, points []domain.IndexPoint) (err error) {
	defer observe("insert_index_points", time.Now(), &err)
	if len(points) == 0 {
		return nil
	}

	type key struct {
		run  int64
		date string
	}
	seen := make(map[key]struct{}, len(points))
	runs := make(map[int64]struct{})
	for _, p := range points {
		if p.Date.IsZero() || p.ComputedAtMs <= 0 {
			return storage.ErrInvalidInput
		}
		k := key{p.ComputedAtMs, domain.FormatDate(p.Date)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		runs[p.ComputedAtMs] = struct{}{}
	}

	for run := range runs {
		stored, err := s.runDates(ctx, run)
		if err != nil {
			return fmt.Errorf("check existing run %d: %w", run, err)
		}
		for _, d := range stored {
			if _, exists := seen[key{run, d}]; exists {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO index_points (`+indexPointColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			uint64(p.ComputedAtMs), domain.TruncateDay(p.Date),
			uint8(p.Activity), uint16(p.ActivityV1), uint8(p.Intent), string(p.IntentSignal),
			p.Momentum, string(p.MomentumSignal), p.Confidence, string(p.ConfidenceLevel),
			p.WeightTx, p.WeightVolume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// LatestRun returns the computed_at_ms of the most recent run.
func (s *IndexPointStore) LatestRun(ctx context.Context) (int64, error) {
	var count, latest uint64
	err := s.conn.QueryRow(ctx, `SELECT count(), max(computed_at_ms) FROM index_points`).Scan(&count, &latest)
	if err != nil {
		return 0, fmt.Errorf("query latest run: %w", err)
	}
	if count == 0 {
		return 0, storage.ErrNotFound
	}
	return int64(latest), nil
}

// GetRun retrieves the points of one run within [start, end], ordered by date ASC.
func (s *IndexPointStore) GetRun(ctx context.Context, computedAtMs int64, start, end time.Time) (_ []domain.IndexPoint, err error) {
	defer observe("get_index_run", time.Now(), &err)
	query := `SELECT ` + indexPointColumns + `
		FROM index_points
		WHERE computed_at_ms = ?`
	args := []any{uint64(computedAtMs)}
	if !start.IsZero() {
		query += ` AND date >= ?`
		args = append(args, domain.TruncateDay(start))
	}
	if !end.IsZero() {
		query += ` AND date <= ?`
		args = append(args, domain.TruncateDay(end))
	}
	query += ` ORDER BY date ASC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	return scanIndexPoints(rows)
}

func (s *IndexPointStore) runDates(ctx context.Context, run int64) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT date FROM index_points WHERE computed_at_ms = ?`, uint64(run))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, domain.FormatDate(d))
	}
	return dates, rows.Err()
}

// scanIndexPoints scans multiple rows.
func scanIndexPoints(rows chRows) ([]domain.IndexPoint, error) {
	var points []domain.IndexPoint

	for rows.Next() {
		var p domain.IndexPoint
		var computedAtMs uint64
		var activity, intent uint8
		var activityV1 uint16
		var intentSignal, momentumSignal, confidenceLevel string

		err := rows.Scan(
			&computedAtMs, &p.Date,
			&activity, &activityV1, &intent, &intentSignal,
			&p.Momentum, &momentumSignal, &p.Confidence, &confidenceLevel,
			&p.WeightTx, &p.WeightVolume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan index point row: %w", err)
		}

		p.ComputedAtMs = int64(computedAtMs)
		p.Date = domain.TruncateDay(p.Date)
		p.Activity = int(activity)
		p.ActivityV1 = int(activityV1)
		p.Intent = int(intent)
		p.IntentSignal = domain.IntentSignal(intentSignal)
		p.MomentumSignal = domain.MomentumSignal(momentumSignal)
		p.ConfidenceLevel = domain.ConfidenceLevel(confidenceLevel)
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index point rows: %w", err)
	}
	return points, nil
}

// observe records the duration and outcome of one store operation.
func observe(operation string, start time.Time, err *error) {
	observability.RecordDBQuery("clickhouse", operation, time.Since(start).Seconds(), *err)
}
