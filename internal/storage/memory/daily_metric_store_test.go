package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/storage"
)

func day(d int) time.Time {
	return domain.Day(2024, time.March, d)
}

func TestDailyMetricStore_InsertBulkAndGet(t *testing.T) {
	store := NewDailyMetricStore()
	ctx := context.Background()

	days := []domain.DailyMetric{
		{Date: day(2), TxCount: 20, Volume: 2000, ExchangeInflow: 10, ExchangeOutflow: 12},
		{Date: day(1), TxCount: 10, Volume: 1000, ExchangeInflow: 5, ExchangeOutflow: 6, ReferencePrice: domain.Float64Ptr(65000)},
	}

	if err := store.InsertBulk(ctx, days); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByDateRange(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("GetByDateRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 days, got %d", len(result))
	}
	if !result[0].Date.Equal(day(1)) || !result[1].Date.Equal(day(2)) {
		t.Errorf("Expected ascending dates, got %v, %v", result[0].Date, result[1].Date)
	}
	if result[0].ReferencePrice == nil || *result[0].ReferencePrice != 65000 {
		t.Errorf("Expected price 65000, got %v", result[0].ReferencePrice)
	}
	if result[1].ReferencePrice != nil {
		t.Errorf("Expected nil price, got %v", *result[1].ReferencePrice)
	}
}

func TestDailyMetricStore_DuplicateKey(t *testing.T) {
	store := NewDailyMetricStore()
	ctx := context.Background()

	days := []domain.DailyMetric{{Date: day(1), TxCount: 1}}
	if err := store.InsertBulk(ctx, days); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, days)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestDailyMetricStore_IntraBatchDuplicate(t *testing.T) {
	store := NewDailyMetricStore()
	ctx := context.Background()

	days := []domain.DailyMetric{
		{Date: day(1), TxCount: 1},
		{Date: day(1).Add(6 * time.Hour), TxCount: 2}, // same calendar day
	}

	err := store.InsertBulk(ctx, days)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	result, _ := store.GetByDateRange(ctx, time.Time{}, time.Time{})
	if len(result) != 0 {
		t.Errorf("Expected 0 days (rollback), got %d", len(result))
	}
}

func TestDailyMetricStore_GetByDateRange(t *testing.T) {
	store := NewDailyMetricStore()
	ctx := context.Background()

	var days []domain.DailyMetric
	for d := 1; d <= 10; d++ {
		days = append(days, domain.DailyMetric{Date: day(d), TxCount: d})
	}
	if err := store.InsertBulk(ctx, days); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByDateRange(ctx, day(3), day(5))
	if err != nil {
		t.Fatalf("GetByDateRange failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("Expected 3 days in range, got %d", len(result))
	}
	if result[0].TxCount != 3 || result[2].TxCount != 5 {
		t.Errorf("Unexpected range bounds: %d..%d", result[0].TxCount, result[2].TxCount)
	}

	open, _ := store.GetByDateRange(ctx, day(8), time.Time{})
	if len(open) != 3 {
		t.Errorf("Expected 3 days with open end, got %d", len(open))
	}
}

func TestDailyMetricStore_LatestDate(t *testing.T) {
	store := NewDailyMetricStore()
	ctx := context.Background()

	if _, err := store.LatestDate(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on empty store, got %v", err)
	}

	_ = store.InsertBulk(ctx, []domain.DailyMetric{{Date: day(4)}, {Date: day(9)}, {Date: day(2)}})
	latest, err := store.LatestDate(ctx)
	if err != nil {
		t.Fatalf("LatestDate failed: %v", err)
	}
	if !latest.Equal(day(9)) {
		t.Errorf("Expected %v, got %v", day(9), latest)
	}
}

func TestDailyMetricStore_ReturnsCopies(t *testing.T) {
	store := NewDailyMetricStore()
	ctx := context.Background()

	price := 100.0
	_ = store.InsertBulk(ctx, []domain.DailyMetric{{Date: day(1), ReferencePrice: &price}})
	price = 200

	result, _ := store.GetByDateRange(ctx, time.Time{}, time.Time{})
	*result[0].ReferencePrice = 300

	again, _ := store.GetByDateRange(ctx, time.Time{}, time.Time{})
	if *again[0].ReferencePrice != 100 {
		t.Errorf("Expected stored price 100, got %v", *again[0].ReferencePrice)
	}
}
