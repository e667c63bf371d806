package engine_test

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heavenlydemon269/vibelist/catalog"
	"github.com/heavenlydemon269/vibelist/distance"
	"github.com/heavenlydemon269/vibelist/encoder"
	"github.com/heavenlydemon269/vibelist/engine"
	"github.com/heavenlydemon269/vibelist/index"
	"github.com/heavenlydemon269/vibelist/testutil"
)

func newUpbeatEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *testutil.Fixture) {
	t.Helper()
	f := testutil.UpbeatFixture(t)
	e, err := engine.New(f.Encoder, f.Index, f.Catalog, opts...)
	require.NoError(t, err)
	return e, f
}

func TestRecommendUpbeat(t *testing.T) {
	for _, policy := range []engine.Policy{engine.PolicySingleShot, engine.PolicyAdaptive} {
		t.Run(policy.String(), func(t *testing.T) {
			e, _ := newUpbeatEngine(t, engine.WithPolicy(policy))
			ctx := context.Background()

			tests := []struct {
				name    string
				exclude []string
				want    []string
			}{
				{"no exclusions", nil, []string{"C", "A", "E"}},
				{"exclude C", []string{"C"}, []string{"A", "E", "B"}},
				{"exclude all", []string{"A", "B", "C", "D", "E"}, []string{}},
				{"exclude unknown", []string{"Z"}, []string{"C", "A", "E"}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					res, err := e.Recommend(ctx, engine.Query{Vibe: "upbeat", Exclude: tt.exclude, Count: 3})
					require.NoError(t, err)
					assert.Equal(t, tt.want, res.IDs())
				})
			}
		})
	}
}

func TestRecommendCountZero(t *testing.T) {
	e, f := newUpbeatEngine(t)

	res, err := e.Recommend(context.Background(), engine.Query{Vibe: "upbeat", Count: 0})
	require.NoError(t, err)
	assert.NotNil(t, res.Recommendations)
	assert.Empty(t, res.Recommendations)
	assert.Zero(t, f.Encoder.Calls())
}

func TestRecommendNegativeCount(t *testing.T) {
	e, _ := newUpbeatEngine(t)
	_, err := e.Recommend(context.Background(), engine.Query{Vibe: "upbeat", Count: -1})
	assert.ErrorIs(t, err, engine.ErrInvalidCount)
}

func TestRecommendCountBeyondCatalog(t *testing.T) {
	e, _ := newUpbeatEngine(t)
	res, err := e.Recommend(context.Background(), engine.Query{Vibe: "upbeat", Count: 50})
	require.NoError(t, err)
	assert.Equal(t, testutil.UpbeatOrder, res.IDs())
	assert.Equal(t, 1, res.Searches)
}

func TestRecommendHugeCount(t *testing.T) {
	for _, policy := range []engine.Policy{engine.PolicySingleShot, engine.PolicyAdaptive} {
		t.Run(policy.String(), func(t *testing.T) {
			e, _ := newUpbeatEngine(t, engine.WithPolicy(policy), engine.WithMargin(math.MaxInt))

			res, err := e.Recommend(context.Background(), engine.Query{Vibe: "upbeat", Exclude: []string{"Z"}, Count: math.MaxInt})
			require.NoError(t, err)
			assert.Equal(t, testutil.UpbeatOrder, res.IDs())
		})
	}
}

func TestRecommendEmptyVibe(t *testing.T) {
	e, _ := newUpbeatEngine(t)
	res, err := e.Recommend(context.Background(), engine.Query{Vibe: "", Count: 2})
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, 2)
}

func TestRecommendDeterministic(t *testing.T) {
	rng := testutil.NewRNG(7)
	f := testutil.RandomFixture(t, rng, 500, 16)
	e, err := engine.New(f.Encoder, f.Index, f.Catalog)
	require.NoError(t, err)

	q := engine.Query{Vibe: "rainy sunday", Exclude: []string{"t0001", "t0100"}, Count: 25}
	first, err := e.Recommend(context.Background(), q)
	require.NoError(t, err)
	for range 5 {
		again, err := e.Recommend(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, first.Recommendations, again.Recommendations)
	}
}

func TestRecommendProperties(t *testing.T) {
	rng := testutil.NewRNG(42)
	f := testutil.RandomFixture(t, rng, 300, 8)

	for _, policy := range []engine.Policy{engine.PolicySingleShot, engine.PolicyAdaptive} {
		t.Run(policy.String(), func(t *testing.T) {
			e, err := engine.New(f.Encoder, f.Index, f.Catalog, engine.WithPolicy(policy))
			require.NoError(t, err)

			for trial := range 50 {
				size := rng.Intn(len(f.Tracks) + 1)
				if trial == 0 {
					size = len(f.Tracks)
				}
				exclude := rng.ExcludeSet(f.Tracks, size)
				count := rng.Intn(40)

				ids := make([]string, 0, len(exclude))
				for id := range exclude {
					ids = append(ids, id)
				}

				res, err := e.Recommend(context.Background(), engine.Query{Vibe: "x", Exclude: ids, Count: count})
				require.NoError(t, err)

				recs := res.Recommendations
				assert.LessOrEqual(t, len(recs), count)
				assert.Equal(t, min(count, len(f.Tracks)-len(exclude)), len(recs), "fill guarantee")
				assert.Equal(t, 1, res.Searches)

				for i, r := range recs {
					_, isExcluded := exclude[r.Track.ID]
					assert.False(t, isExcluded, "excluded %s returned", r.Track.ID)
					if i > 0 {
						assert.LessOrEqual(t, recs[i-1].Distance, r.Distance)
					}
				}
			}
		})
	}
}

func TestRecommendRankingMatchesIndex(t *testing.T) {
	rng := testutil.NewRNG(3)
	f := testutil.RandomFixture(t, rng, 200, 8)
	e, err := engine.New(f.Encoder, f.Index, f.Catalog)
	require.NoError(t, err)

	q, err := f.Encoder.Encode(context.Background(), "x")
	require.NoError(t, err)
	hits, err := f.Index.Search(context.Background(), q, 10)
	require.NoError(t, err)

	res, err := e.Recommend(context.Background(), engine.Query{Vibe: "x", Count: 10})
	require.NoError(t, err)
	for i, h := range hits {
		assert.Equal(t, h.Row, res.Recommendations[i].Row)
	}
}

func TestRecommendMonotonicExhaustion(t *testing.T) {
	rng := testutil.NewRNG(11)
	f := testutil.RandomFixture(t, rng, 57, 8)
	e, err := engine.New(f.Encoder, f.Index, f.Catalog)
	require.NoError(t, err)

	var exclude []string
	prev := 10
	for round := 0; ; round++ {
		require.Less(t, round, 20)
		res, err := e.Recommend(context.Background(), engine.Query{Vibe: "x", Exclude: exclude, Count: 10})
		require.NoError(t, err)

		n := len(res.Recommendations)
		assert.LessOrEqual(t, n, prev)
		prev = n
		if n == 0 {
			break
		}
		for _, id := range res.IDs() {
			assert.NotContains(t, exclude, id)
			exclude = append(exclude, id)
		}
	}
	assert.Len(t, exclude, 57)
}

// sparseIndex wraps an index and returns at most limit rows per search,
// like an approximate backend with a small candidate list.
type sparseIndex struct {
	index.Index
	limit    int
	searches []int
}

func (s *sparseIndex) Search(ctx context.Context, q []float32, k int) ([]index.Result, error) {
	s.searches = append(s.searches, k)
	res, err := s.Index.Search(ctx, q, k)
	if err != nil {
		return nil, err
	}
	if k < s.Len() && len(res) > s.limit {
		res = res[:s.limit]
	}
	return res, nil
}

func TestAdaptivePolicyWidensSearch(t *testing.T) {
	rng := testutil.NewRNG(5)
	f := testutil.RandomFixture(t, rng, 400, 8)
	sparse := &sparseIndex{Index: f.Index, limit: 20}

	exclude := make([]string, 0, 30)
	q, err := f.Encoder.Encode(context.Background(), "x")
	require.NoError(t, err)
	hits, err := f.Index.Search(context.Background(), q, 30)
	require.NoError(t, err)
	for _, h := range hits {
		exclude = append(exclude, f.Tracks[h.Row].ID)
	}

	single, err := engine.New(f.Encoder, sparse, f.Catalog, engine.WithMargin(30))
	require.NoError(t, err)
	res, err := single.Recommend(context.Background(), engine.Query{Vibe: "x", Exclude: exclude, Count: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Recommendations, "single-shot accepts a short result")
	assert.Equal(t, []int{70}, sparse.searches)

	sparse.searches = nil
	adaptive, err := engine.New(f.Encoder, sparse, f.Catalog, engine.WithMargin(30), engine.WithPolicy(engine.PolicyAdaptive))
	require.NoError(t, err)
	res, err = adaptive.Recommend(context.Background(), engine.Query{Vibe: "x", Exclude: exclude, Count: 10})
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, 10)
	assert.Equal(t, []int{70, 140, 280, 400}, sparse.searches)
	assert.Equal(t, 4, res.Searches)

	full, err := f.Index.Search(context.Background(), q, 40)
	require.NoError(t, err)
	want := full[30:]
	for i, r := range res.Recommendations {
		assert.Equal(t, want[i].Row, r.Row)
	}
}

func TestMarginSizesSearch(t *testing.T) {
	f := testutil.UpbeatFixture(t)
	spy := &sparseIndex{Index: f.Index, limit: 100}
	e, err := engine.New(f.Encoder, spy, f.Catalog)
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultMargin, e.Margin())

	_, err = e.Recommend(context.Background(), engine.Query{Vibe: "upbeat", Exclude: []string{"A", "A", "B"}, Count: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2 + 2 + engine.DefaultMargin}, spy.searches)
}

func TestRecommendEncoderError(t *testing.T) {
	e, f := newUpbeatEngine(t)
	boom := errors.New("boom")
	f.Encoder.Err = boom

	_, err := e.Recommend(context.Background(), engine.Query{Vibe: "upbeat", Count: 1})
	assert.ErrorIs(t, err, boom)
}

func TestRecommendNonFiniteVector(t *testing.T) {
	e, f := newUpbeatEngine(t)
	f.Encoder.Fallback = []float32{float32(math.NaN()), 1}

	_, err := e.Recommend(context.Background(), engine.Query{Vibe: "unknown vibe", Count: 1})
	assert.ErrorIs(t, err, encoder.ErrInvalidEmbedding)

	f.Encoder.Fallback = []float32{float32(math.Inf(1)), 0}
	_, err = e.Recommend(context.Background(), engine.Query{Vibe: "unknown vibe", Count: 1})
	assert.ErrorIs(t, err, encoder.ErrInvalidEmbedding)
}

func TestRecommendCancelled(t *testing.T) {
	e, _ := newUpbeatEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Recommend(ctx, engine.Query{Vibe: "upbeat", Count: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidation(t *testing.T) {
	f := testutil.UpbeatFixture(t)

	short, err := catalog.New(f.Tracks[:4])
	require.NoError(t, err)
	_, err = engine.New(f.Encoder, f.Index, short)
	assert.ErrorIs(t, err, engine.ErrMisaligned)

	idx3, err := index.NewFlat(3, distance.MetricCosine)
	require.NoError(t, err)
	_, err = engine.New(f.Encoder, idx3, f.Catalog)
	var dimErr *index.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dimErr)

	_, err = engine.New(f.Encoder, f.Index, f.Catalog, engine.WithMargin(-1))
	assert.Error(t, err)

	_, err = engine.New(f.Encoder, f.Index, f.Catalog, engine.WithPolicy(engine.Policy(9)))
	assert.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	p, err := engine.ParsePolicy("Adaptive")
	require.NoError(t, err)
	assert.Equal(t, engine.PolicyAdaptive, p)

	p, err = engine.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, engine.PolicySingleShot, p)

	_, err = engine.ParsePolicy("greedy")
	assert.Error(t, err)
}

func TestResultIDs(t *testing.T) {
	r := &engine.Result{Recommendations: []engine.Recommendation{{Track: catalog.Track{ID: "x"}}, {Track: catalog.Track{ID: "y"}}}}
	assert.True(t, slices.Equal([]string{"x", "y"}, r.IDs()))
}
