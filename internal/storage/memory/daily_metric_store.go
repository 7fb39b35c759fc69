package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/storage"
)

// DailyMetricStore is an in-memory implementation of storage.DailyMetricStore.
type DailyMetricStore struct {
	mu   sync.RWMutex
	data map[string]domain.DailyMetric // keyed by YYYY-MM-DD
}

// NewDailyMetricStore creates a new in-memory daily metric store.
func NewDailyMetricStore() *DailyMetricStore {
	return &DailyMetricStore{
		data: make(map[string]domain.DailyMetric),
	}
}

// InsertBulk adds days. Fails entire batch on duplicate.
func (s *DailyMetricStore) InsertBulk(_ context.Context, days []domain.DailyMetric) error {
	if len(days) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(days))
	for _, d := range days {
		if d.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := domain.FormatDate(d.Date)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, d := range days {
		d.Date = domain.TruncateDay(d.Date)
		if d.ReferencePrice != nil {
			d.ReferencePrice = domain.Float64Ptr(*d.ReferencePrice)
		}
		s.data[domain.FormatDate(d.Date)] = d
	}
	return nil
}

// GetByDateRange retrieves days within [start, end], ordered by date ASC.
func (s *DailyMetricStore) GetByDateRange(_ context.Context, start, end time.Time) ([]domain.DailyMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.DailyMetric, 0, len(s.data))
	for _, d := range s.data {
		if !storage.InDateRange(d.Date, start, end) {
			continue
		}
		if d.ReferencePrice != nil {
			d.ReferencePrice = domain.Float64Ptr(*d.ReferencePrice)
		}
		result = append(result, d)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// LatestDate returns the most recent stored date.
func (s *DailyMetricStore) LatestDate(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return time.Time{}, storage.ErrNotFound
	}
	var latest time.Time
	for _, d := range s.data {
		if d.Date.After(latest) {
			latest = d.Date
		}
	}
	return latest, nil
}

var _ storage.DailyMetricStore = (*DailyMetricStore)(nil)
