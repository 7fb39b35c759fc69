package memory

import (
	"context"
	"sync"

	"whale-index-lab/internal/storage"
)

// IngestProgressStore is an in-memory implementation of storage.IngestProgressStore.
type IngestProgressStore struct {
	mu       sync.RWMutex
	progress map[string]storage.IngestProgress
}

// NewIngestProgressStore creates a new in-memory ingest progress store.
func NewIngestProgressStore() *IngestProgressStore {
	return &IngestProgressStore{
		progress: make(map[string]storage.IngestProgress),
	}
}

// GetLastIngested returns progress for source.
func (s *IngestProgressStore) GetLastIngested(_ context.Context, source string) (*storage.IngestProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[source]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

// SetLastIngested upserts progress for p.Source.
func (s *IngestProgressStore) SetLastIngested(_ context.Context, p *storage.IngestProgress) error {
	if p == nil || p.Source == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress[p.Source] = *p
	return nil
}

var _ storage.IngestProgressStore = (*IngestProgressStore)(nil)
