package index

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heavenlydemon269/vibelist/distance"
)

func newTestFlat(t *testing.T, metric distance.Metric, vecs ...[]float32) *Flat {
	t.Helper()
	f, err := NewFlat(len(vecs[0]), metric)
	require.NoError(t, err)
	for i, v := range vecs {
		row, err := f.Add(v)
		require.NoError(t, err)
		require.Equal(t, uint32(i), row)
	}
	return f
}

func TestNewFlatValidation(t *testing.T) {
	_, err := NewFlat(0, distance.MetricCosine)
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = NewFlat(4, distance.Metric(99))
	assert.Error(t, err)
}

func TestFlatAdd(t *testing.T) {
	f, err := NewFlat(2, distance.MetricCosine)
	require.NoError(t, err)

	_, err = f.Add(nil)
	assert.ErrorIs(t, err, ErrEmptyVector)

	_, err = f.Add([]float32{1, 2, 3})
	var dimErr *ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 2, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Actual)

	src := []float32{3, 4}
	_, err = f.Add(src)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, src, "input must not be modified")

	v, ok := f.Vector(0)
	require.True(t, ok)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	_, ok = f.Vector(1)
	assert.False(t, ok)
}

func TestFlatSearchOrder(t *testing.T) {
	f := newTestFlat(t, distance.MetricL2,
		[]float32{0, 0},
		[]float32{3, 0},
		[]float32{1, 0},
		[]float32{2, 0},
	)

	res, err := f.Search(context.Background(), []float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []uint32{0, 2, 3}, rows(res))
	assert.Equal(t, float32(0), res[0].Distance)
	assert.Equal(t, float32(4), res[2].Distance)
}

func TestFlatSearchKBeyondLen(t *testing.T) {
	f := newTestFlat(t, distance.MetricCosine, []float32{1, 0}, []float32{0, 1})

	res, err := f.Search(context.Background(), []float32{1, 0}, 100)
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestFlatSearchArguments(t *testing.T) {
	f := newTestFlat(t, distance.MetricCosine, []float32{1, 0})
	ctx := context.Background()

	res, err := f.Search(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = f.Search(ctx, []float32{1, 0}, -1)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = f.Search(ctx, nil, 1)
	assert.ErrorIs(t, err, ErrEmptyVector)

	_, err = f.Search(ctx, []float32{1, 0, 0}, 1)
	var dimErr *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dimErr)
}

func TestFlatSearchEmptyIndex(t *testing.T) {
	f, err := NewFlat(3, distance.MetricCosine)
	require.NoError(t, err)

	res, err := f.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestFlatSearchTiesAreOrderedByRow(t *testing.T) {
	f := newTestFlat(t, distance.MetricCosine,
		[]float32{0, 0}, []float32{0, 0}, []float32{0, 0}, []float32{0, 0},
	)

	// A zero query is searched as-is: every row ties.
	res, err := f.Search(context.Background(), []float32{0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, rows(res))
}

func TestFlatSearchCancelled(t *testing.T) {
	f := newTestFlat(t, distance.MetricCosine, []float32{1, 0})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFlatSearchMatchesBruteForce(t *testing.T) {
	const dim, n = 16, 300
	rng := rand.New(rand.NewSource(7))

	for _, m := range []distance.Metric{distance.MetricCosine, distance.MetricL2, distance.MetricDot} {
		t.Run(m.String(), func(t *testing.T) {
			f, err := NewFlat(dim, m)
			require.NoError(t, err)
			for i := 0; i < n; i++ {
				_, err := f.Add(randomVector(rng, dim))
				require.NoError(t, err)
			}

			q := randomVector(rng, dim)
			res, err := f.Search(context.Background(), q, 20)
			require.NoError(t, err)
			require.Len(t, res, 20)

			qn := append([]float32(nil), q...)
			if m.Normalizes() {
				distance.NormalizeL2InPlace(qn)
			}
			fn, _ := distance.Provider(m)
			all := make([]Result, n)
			for i := 0; i < n; i++ {
				v, _ := f.Vector(uint32(i))
				all[i] = Result{Row: uint32(i), Distance: fn(qn, v)}
			}
			sort.Slice(all, func(i, j int) bool {
				if all[i].Distance != all[j].Distance {
					return all[i].Distance < all[j].Distance
				}
				return all[i].Row < all[j].Row
			})
			assert.Equal(t, all[:20], res)
		})
	}
}

func rows(res []Result) []uint32 {
	out := make([]uint32, len(res))
	for i, r := range res {
		out[i] = r.Row
	}
	return out
}

func randomVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}
