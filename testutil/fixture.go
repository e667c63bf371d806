package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heavenlydemon269/vibelist/catalog"
	"github.com/heavenlydemon269/vibelist/distance"
	"github.com/heavenlydemon269/vibelist/index"
)

// Fixture is a small catalog, its aligned index and an encoder for it.
type Fixture struct {
	Tracks  []catalog.Track
	Catalog *catalog.Catalog
	Index   *index.Flat
	Encoder *FixedEncoder
}

// UpbeatVectors holds the 2-dimensional vectors of tracks A to E. Their
// angles to the "upbeat" query are C 0, A 20, E 40, B 60 and D 80 degrees.
var UpbeatVectors = map[string][]float32{
	"A": {0.9397, 0.3420},
	"B": {0.5000, 0.8660},
	"C": {1.0000, 0.0000},
	"D": {0.1736, 0.9848},
	"E": {0.7660, 0.6428},
}

// UpbeatOrder is the ranking of the fixture for the query "upbeat".
var UpbeatOrder = []string{"C", "A", "E", "B", "D"}

// UpbeatFixture returns tracks A to E in catalog rows 0 to 4, indexed under
// cosine distance, and an encoder mapping "upbeat" to (1, 0).
func UpbeatFixture(t testing.TB) *Fixture {
	t.Helper()

	ids := []string{"A", "B", "C", "D", "E"}
	tracks := make([]catalog.Track, len(ids))
	for i, id := range ids {
		tracks[i] = catalog.Track{ID: id, Name: "Track " + id, Artist: "Artist " + id}
	}

	cat, err := catalog.New(tracks)
	require.NoError(t, err)

	idx, err := index.NewFlat(2, distance.MetricCosine)
	require.NoError(t, err)
	for _, id := range ids {
		_, err := idx.Add(UpbeatVectors[id])
		require.NoError(t, err)
	}

	enc := &FixedEncoder{
		Dim: 2,
		Vectors: map[string][]float32{
			"upbeat": {1, 0},
			"mellow": {0, 1},
		},
		Fallback: []float32{0.7071, 0.7071},
	}

	return &Fixture{Tracks: tracks, Catalog: cat, Index: idx, Encoder: enc}
}

// RandomFixture returns n random tracks with unit vectors of dimension dim and
// an encoder whose fallback is a random unit vector.
func RandomFixture(t testing.TB, rng *RNG, n, dim int) *Fixture {
	t.Helper()

	tracks := Tracks(n)
	cat, err := catalog.New(tracks)
	require.NoError(t, err)

	idx, err := index.NewFlatWithCapacity(dim, distance.MetricCosine, n)
	require.NoError(t, err)
	for _, v := range rng.UnitVectors(n, dim) {
		_, err := idx.Add(v)
		require.NoError(t, err)
	}

	enc := &FixedEncoder{Dim: dim, Vectors: map[string][]float32{}, Fallback: rng.UnitVector(dim)}
	return &Fixture{Tracks: tracks, Catalog: cat, Index: idx, Encoder: enc}
}
