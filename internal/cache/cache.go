// Package cache memoizes computed responses per request key. Concurrent
// callers of the same key share a single computation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"whale-index-lab/internal/logger"
	"whale-index-lab/internal/observability"
)

// Store is a TTL key-value store for encoded responses.
type Store interface {
	// Get returns the value and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Clear removes every key with the given prefix.
	Clear(ctx context.Context, prefix string) error
}

// Cache combines a Store with per-key call deduplication.
type Cache struct {
	store  Store
	group  singleflight.Group
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

// Options for creating a Cache.
type Options struct {
	TTL    time.Duration // default 5m
	Prefix string        // prepended to every key
	Logger *logger.Logger
}

// New creates a Cache over store.
func New(store Store, opts Options) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		store:  store,
		ttl:    ttl,
		prefix: opts.Prefix,
		log:    logger.OrNop(opts.Logger).Named("cache"),
	}
}

// Do returns the cached value for key or computes, stores and returns it.
// At most one compute per key runs at a time; concurrent callers wait for
// and share its result. Store failures are logged and bypassed.
func (c *Cache) Do(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	full := c.prefix + key

	if v, ok, err := c.store.Get(ctx, full); err != nil {
		c.log.Warnw("cache read failed", "key", full, "error", err)
	} else if ok {
		observability.RecordCacheLookup(true)
		return v, nil
	}
	observability.RecordCacheLookup(false)

	ch := c.group.DoChan(full, func() (interface{}, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.store.Set(ctx, full, v, c.ttl); err != nil {
			c.log.Warnw("cache write failed", "key", full, "error", err)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	}
}

// Invalidate drops every key owned by this cache.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.log.Debugw("invalidating cache", "prefix", c.prefix)
	return c.store.Clear(ctx, c.prefix)
}

// GetJSON is Do for JSON-encodable values.
func GetJSON[T any](ctx context.Context, c *Cache, key string, compute func(context.Context) (T, error)) (T, error) {
	var out T
	data, err := c.Do(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode cached %q: %w", key, err)
	}
	return out, nil
}
