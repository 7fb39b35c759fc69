package feed

import (
	"context"
	"time"

	"whale-index-lab/internal/fixture"
)

// Fixtures is an offline Source backed by the seeded synthetic generator.
type Fixtures struct {
	Days int
	Seed int64
	Now  func() time.Time // nil uses time.Now
}

// Fetch returns the same synthetic history on every call.
func (f Fixtures) Fetch(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return &Snapshot{
		Series:          fixture.Synthetic(f.Days, f.Seed),
		PricesAvailable: true,
		FetchedAt:       now().UTC(),
	}, nil
}

var _ Source = Fixtures{}
