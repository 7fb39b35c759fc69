package pipeline

import (
	"context"
	"fmt"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/fixture"
	"whale-index-lab/internal/storage"
)

// FixtureSource is the ingest progress source name for generated data.
const FixtureSource = "fixtures"

// LoadFixtures populates store with n days of seeded synthetic metrics
// starting at fixture.DefaultStart and records the ingest progress.
// Returns the generated series.
func LoadFixtures(
	ctx context.Context,
	store storage.DailyMetricStore,
	progress storage.IngestProgressStore,
	n int,
	seed int64,
) (domain.Series, error) {
	if n < 1 {
		return domain.Series{}, fmt.Errorf("fixtures: need at least one day, got %d", n)
	}

	series := fixture.Synthetic(n, seed)
	if err := store.InsertBulk(ctx, series.Days()); err != nil {
		return domain.Series{}, fmt.Errorf("insert fixtures: %w", err)
	}

	if progress != nil {
		_, last := series.DateRange()
		err := progress.SetLastIngested(ctx, &storage.IngestProgress{
			Source:   FixtureSource,
			LastDate: last,
			Days:     n,
		})
		if err != nil {
			return domain.Series{}, fmt.Errorf("record fixture progress: %w", err)
		}
	}
	return series, nil
}
