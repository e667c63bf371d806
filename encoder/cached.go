package encoder

import (
	"context"
	"slices"

	"golang.org/x/sync/singleflight"

	"github.com/heavenlydemon269/vibelist/internal/cache"
)

// Cached wraps an Encoder with an LRU cache keyed by the prepared input.
// Concurrent misses for the same text share one backend call.
type Cached struct {
	Encoder
	maxRunes int
	lru      *cache.LRU[string, []float32]
	group    singleflight.Group
}

// NewCached caches up to capacity vectors produced by enc. maxRunes must
// match the limit enc applies, so that inputs which enc treats as equal
// share an entry.
func NewCached(enc Encoder, capacity, maxRunes int) *Cached {
	return &Cached{
		Encoder:  enc,
		maxRunes: maxRunes,
		lru:      cache.NewLRU[string, []float32](capacity),
	}
}

// Encode returns a cached vector or computes and caches it.
// The returned slice is owned by the caller.
func (c *Cached) Encode(ctx context.Context, text string) ([]float32, error) {
	key := Prepare(text, c.maxRunes)
	if vec, ok := c.lru.Get(key); ok {
		return slices.Clone(vec), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		vec, err := c.Encoder.Encode(ctx, key)
		if err != nil {
			return nil, err
		}
		c.lru.Set(key, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]float32)), nil
}

// Stats returns cache hits and misses.
func (c *Cached) Stats() (hits, misses int64) {
	return c.lru.Stats()
}
