package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UnitVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))

	for _, vec := range v {
		var sum float32
		for _, val := range vec {
			sum += val * val
		}
		assert.InDelta(t, float32(1.0), sum, 1e-5)
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.UniformRangeVectors(1, 10)
	rng.Reset()
	v2 := rng.UniformRangeVectors(1, 10)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestSample(t *testing.T) {
	rng := NewRNG(1)
	s := rng.Sample(10, 4)
	assert.Len(t, s, 4)

	seen := map[int]bool{}
	for _, v := range s {
		assert.False(t, seen[v])
		assert.Less(t, v, 10)
		seen[v] = true
	}

	assert.Len(t, rng.Sample(3, 10), 3)
}

func TestUpbeatFixture(t *testing.T) {
	f := UpbeatFixture(t)
	assert.Equal(t, 5, f.Catalog.Len())
	assert.Equal(t, 5, f.Index.Len())

	q, err := f.Encoder.Encode(context.Background(), "  upbeat ")
	require.NoError(t, err)

	res, err := f.Index.Search(context.Background(), q, 5)
	require.NoError(t, err)

	got := make([]string, len(res))
	for i, r := range res {
		tr, ok := f.Catalog.At(r.Row)
		require.True(t, ok)
		got[i] = tr.ID
	}
	assert.Equal(t, UpbeatOrder, got)
}
