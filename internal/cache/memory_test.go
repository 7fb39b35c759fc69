package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	now = now.Add(time.Minute)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_ExpiredReadKeepsFreshSet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Set(ctx, "k", []byte("old"), time.Minute))
	now = now.Add(2 * time.Minute)

	// A writer replaces the entry after Get has read the stale one but
	// before it evicts.
	replaced := false
	s.now = func() time.Time {
		if !replaced {
			replaced = true
			require.NoError(t, s.Set(ctx, "k", []byte("new"), time.Hour))
		}
		return now
	}

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", string(v))
}

func TestMemoryStore_CopiesValue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'x'

	v, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}

func TestMemoryStore_ClearPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, k := range []string{"whale:a", "whale:b", "other:a"} {
		require.NoError(t, s.Set(ctx, k, []byte("1"), time.Minute))
	}

	require.NoError(t, s.Clear(ctx, "whale:"))
	assert.Equal(t, 1, s.Len())
	_, ok, _ := s.Get(ctx, "other:a")
	assert.True(t, ok)
}
