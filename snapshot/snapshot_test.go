package snapshot_test

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heavenlydemon269/vibelist/blobstore"
	"github.com/heavenlydemon269/vibelist/catalog"
	"github.com/heavenlydemon269/vibelist/distance"
	"github.com/heavenlydemon269/vibelist/encoder"
	"github.com/heavenlydemon269/vibelist/index"
	"github.com/heavenlydemon269/vibelist/snapshot"
	"github.com/heavenlydemon269/vibelist/testutil"
)

func TestWriteLoadRoundTrip(t *testing.T) {
	for _, comp := range []snapshot.Compression{snapshot.CompressionNone, snapshot.CompressionZSTD, snapshot.CompressionLZ4} {
		t.Run(comp.String(), func(t *testing.T) {
			ctx := context.Background()
			f := testutil.UpbeatFixture(t)
			store := blobstore.NewLocalStore(t.TempDir())

			m, err := snapshot.Write(ctx, store, f.Catalog, f.Index, snapshot.WriteOptions{
				Compression: comp,
				Model:       "fixed",
			})
			require.NoError(t, err)
			assert.Equal(t, 5, m.Catalog.Rows)
			assert.Equal(t, "cosine", m.Metric)

			snap, err := snapshot.Load(ctx, store, snapshot.LoadOptions{})
			require.NoError(t, err)
			require.NotNil(t, snap.Manifest)
			assert.Equal(t, "fixed", snap.Manifest.Model)
			assert.Equal(t, 5, snap.Catalog.Len())
			assert.Equal(t, f.Index.Len(), snap.Index.Len())

			for row, tr := range f.Catalog.All() {
				got, ok := snap.Catalog.At(row)
				require.True(t, ok)
				assert.Equal(t, tr.ID, got.ID)

				want, _ := f.Index.Vector(row)
				have, _ := snap.Index.Vector(row)
				assert.Equal(t, want, have)
			}
		})
	}
}

func TestLoadWithoutManifest(t *testing.T) {
	ctx := context.Background()
	f := testutil.UpbeatFixture(t)
	store := blobstore.NewMemoryStore()

	var csvBuf bytes.Buffer
	require.NoError(t, catalog.WriteCSV(&csvBuf, f.Tracks))
	store.Put(snapshot.DefaultCatalogName, csvBuf.Bytes())

	var idxBuf bytes.Buffer
	_, err := f.Index.WriteTo(&idxBuf)
	require.NoError(t, err)
	store.Put(snapshot.DefaultIndexName, idxBuf.Bytes())

	snap, err := snapshot.Load(ctx, store, snapshot.LoadOptions{})
	require.NoError(t, err)
	assert.Nil(t, snap.Manifest)
	assert.Equal(t, 5, snap.Catalog.Len())
}

func TestLoadRowMismatch(t *testing.T) {
	ctx := context.Background()
	f := testutil.UpbeatFixture(t)
	store := blobstore.NewMemoryStore()

	var csvBuf bytes.Buffer
	require.NoError(t, catalog.WriteCSV(&csvBuf, f.Tracks[:4]))
	store.Put(snapshot.DefaultCatalogName, csvBuf.Bytes())

	var idxBuf bytes.Buffer
	_, err := f.Index.WriteTo(&idxBuf)
	require.NoError(t, err)
	store.Put(snapshot.DefaultIndexName, idxBuf.Bytes())

	_, err = snapshot.Load(ctx, store, snapshot.LoadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, snapshot.ErrConfiguration)
	assert.Contains(t, err.Error(), "4 rows but index has 5")
}

func TestLoadMissingArtifact(t *testing.T) {
	store := blobstore.NewMemoryStore()
	_, err := snapshot.Load(context.Background(), store, snapshot.LoadOptions{})
	assert.ErrorIs(t, err, snapshot.ErrConfiguration)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestLoadDuplicateIDs(t *testing.T) {
	store := blobstore.NewMemoryStore()
	tracks := []catalog.Track{{ID: "x", Name: "a", Artist: "b"}, {ID: "x", Name: "c", Artist: "d"}}

	var csvBuf bytes.Buffer
	require.NoError(t, catalog.WriteCSV(&csvBuf, tracks))
	store.Put(snapshot.DefaultCatalogName, csvBuf.Bytes())

	idx, err := index.NewFlat(2, distance.MetricCosine)
	require.NoError(t, err)
	_, _ = idx.Add([]float32{1, 0})
	_, _ = idx.Add([]float32{0, 1})
	var idxBuf bytes.Buffer
	_, err = idx.WriteTo(&idxBuf)
	require.NoError(t, err)
	store.Put(snapshot.DefaultIndexName, idxBuf.Bytes())

	_, err = snapshot.Load(context.Background(), store, snapshot.LoadOptions{})
	assert.ErrorIs(t, err, snapshot.ErrConfiguration)
	var dup *catalog.DuplicateIDError
	assert.ErrorAs(t, err, &dup)
}

func TestLoadRejectsBadManifest(t *testing.T) {
	store := blobstore.NewMemoryStore()
	store.Put(snapshot.ManifestName, []byte(`{"version":1,"catalog":{"path":"c.csv","rows":1},"index":{"path":"i.vbl","rows":1},"metric":"cosine","dimension":2,"text_format":99}`))

	_, err := snapshot.Load(context.Background(), store, snapshot.LoadOptions{})
	assert.ErrorIs(t, err, snapshot.ErrConfiguration)
	assert.Contains(t, err.Error(), "text format")
}

func TestWriteLoadSQLite(t *testing.T) {
	if testing.Short() {
		t.Skip("sqlite round trip")
	}
	ctx := context.Background()
	f := testutil.UpbeatFixture(t)

	// A memory store forces the loader to materialize the database.
	store := blobstore.NewMemoryStore()
	m, err := snapshot.Write(ctx, store, f.Catalog, f.Index, snapshot.WriteOptions{
		CatalogFormat: catalog.FormatSQLite,
		Compression:   snapshot.CompressionZSTD,
		TempDir:       t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, "catalog.sqlite.zst", m.Catalog.Path)
	assert.Equal(t, catalog.DefaultTable, m.Catalog.Table)

	snap, err := snapshot.Load(ctx, store, snapshot.LoadOptions{TempDir: t.TempDir()})
	require.NoError(t, err)
	tr, ok := snap.Catalog.At(2)
	require.True(t, ok)
	assert.Equal(t, "C", tr.ID)
}

type slowEncoder struct {
	encoder.Encoder
	inflight, peak atomic.Int64
}

func (s *slowEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return s.Encoder.Encode(ctx, text)
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	tracks := testutil.Tracks(100)
	cat, err := catalog.New(tracks)
	require.NoError(t, err)

	hashing, err := encoder.NewHashing(32, 0)
	require.NoError(t, err)
	enc := &slowEncoder{Encoder: hashing}

	var last atomic.Int64
	idx, err := snapshot.Build(ctx, cat, enc, snapshot.BuildOptions{
		Metric:      distance.MetricCosine,
		Concurrency: 3,
		BatchSize:   7,
		Progress:    func(done, _ int) { last.Store(int64(done)) },
	})
	require.NoError(t, err)
	assert.Equal(t, 100, idx.Len())
	assert.Equal(t, int64(100), last.Load())
	assert.LessOrEqual(t, enc.peak.Load(), int64(3))

	// Row alignment: a track's own embedding text finds that track first.
	for _, row := range []uint32{0, 42, 99} {
		tr, _ := cat.At(row)
		q, err := hashing.Encode(ctx, catalog.EmbeddingText(tr))
		require.NoError(t, err)
		res, err := idx.Search(ctx, q, 1)
		require.NoError(t, err)
		assert.Equal(t, row, res[0].Row)
	}
}

func TestBuildEncoderError(t *testing.T) {
	cat, err := catalog.New(testutil.Tracks(10))
	require.NoError(t, err)

	enc := &testutil.FixedEncoder{Dim: 2, Err: encoder.ErrUnavailable}
	_, err = snapshot.Build(context.Background(), cat, enc, snapshot.DefaultBuildOptions())
	assert.ErrorIs(t, err, encoder.ErrUnavailable)
}
