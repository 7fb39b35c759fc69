package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/storage"
)

// IndexPointStore is an in-memory implementation of storage.IndexPointStore.
type IndexPointStore struct {
	mu   sync.RWMutex
	data map[string]domain.IndexPoint // keyed by (computed_at_ms, date)
}

// NewIndexPointStore creates a new in-memory index point store.
func NewIndexPointStore() *IndexPointStore {
	return &IndexPointStore{
		data: make(map[string]domain.IndexPoint),
	}
}

func pointKey(computedAtMs int64, date time.Time) string {
	return fmt.Sprintf("%d|%s", computedAtMs, domain.FormatDate(date))
}

// InsertBulk adds points. Fails entire batch on duplicate.
func (s *IndexPointStore) InsertBulk(_ context.Context, points []domain.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p.Date.IsZero() || p.ComputedAtMs <= 0 {
			return storage.ErrInvalidInput
		}
		key := pointKey(p.ComputedAtMs, p.Date)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		p.Date = domain.TruncateDay(p.Date)
		s.data[pointKey(p.ComputedAtMs, p.Date)] = p
	}
	return nil
}

// LatestRun returns the computed_at_ms of the most recent run.
func (s *IndexPointStore) LatestRun(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return 0, storage.ErrNotFound
	}
	var latest int64
	for _, p := range s.data {
		if p.ComputedAtMs > latest {
			latest = p.ComputedAtMs
		}
	}
	return latest, nil
}

// GetRun retrieves the points of one run within [start, end], ordered by date ASC.
func (s *IndexPointStore) GetRun(_ context.Context, computedAtMs int64, start, end time.Time) ([]domain.IndexPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.IndexPoint
	for _, p := range s.data {
		if p.ComputedAtMs == computedAtMs && storage.InDateRange(p.Date, start, end) {
			result = append(result, p)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

var _ storage.IndexPointStore = (*IndexPointStore)(nil)
