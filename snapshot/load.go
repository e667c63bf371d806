package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/heavenlydemon269/vibelist/blobstore"
	"github.com/heavenlydemon269/vibelist/catalog"
	"github.com/heavenlydemon269/vibelist/distance"
	"github.com/heavenlydemon269/vibelist/index"
)

// ErrConfiguration marks snapshots that cannot be served.
var ErrConfiguration = errors.New("configuration error")

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrConfiguration, fmt.Errorf(format, args...))
}

// Snapshot is a loaded catalog and its aligned index.
type Snapshot struct {
	Catalog *catalog.Catalog
	Index   *index.Flat
	// Manifest is nil when the snapshot was loaded from default names.
	Manifest *Manifest
}

// LoadOptions selects artifacts when a snapshot has no manifest.
type LoadOptions struct {
	CatalogName string
	IndexName   string
	// Table is the SQLite table holding the catalog.
	Table string
	// TempDir receives SQLite and Parquet artifacts that are not local files.
	TempDir string
}

// Load reads the snapshot in store. When a manifest exists it names the
// artifacts; otherwise opts (or the defaults) do. The catalog and index are
// read in parallel and their row counts must match.
func Load(ctx context.Context, store blobstore.BlobStore, opts LoadOptions) (*Snapshot, error) {
	m, err := ReadManifest(ctx, store)
	switch {
	case err == nil:
		opts.CatalogName = m.Catalog.Path
		opts.IndexName = m.Index.Path
		if m.Catalog.Table != "" {
			opts.Table = m.Catalog.Table
		}
	case errors.Is(err, blobstore.ErrNotFound):
		m = nil
		if opts.CatalogName == "" {
			opts.CatalogName = DefaultCatalogName
		}
		if opts.IndexName == "" {
			opts.IndexName = DefaultIndexName
		}
	default:
		return nil, configError("manifest: %w", err)
	}

	var (
		cat *catalog.Catalog
		idx *index.Flat
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := LoadCatalog(gctx, store, opts)
		if err != nil {
			return configError("catalog %s: %w", opts.CatalogName, err)
		}
		cat = c
		return nil
	})
	g.Go(func() error {
		i, err := loadIndex(gctx, store, opts.IndexName)
		if err != nil {
			return configError("index %s: %w", opts.IndexName, err)
		}
		idx = i
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if cat.Len() != idx.Len() {
		return nil, configError("catalog has %d rows but index has %d", cat.Len(), idx.Len())
	}
	if m != nil {
		if m.Catalog.Rows != cat.Len() {
			return nil, configError("manifest declares %d rows, snapshot has %d", m.Catalog.Rows, cat.Len())
		}
		if m.Dimension != idx.Dimension() {
			return nil, configError("manifest declares dimension %d, index has %d", m.Dimension, idx.Dimension())
		}
		metric, err := distance.ParseMetric(m.Metric)
		if err != nil {
			return nil, configError("manifest: %w", err)
		}
		if metric != idx.Metric() {
			return nil, configError("manifest declares metric %s, index uses %s", metric, idx.Metric())
		}
	}

	return &Snapshot{Catalog: cat, Index: idx, Manifest: m}, nil
}

func readBlob(ctx context.Context, store blobstore.BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	data, err := blobstore.ReadAll(b)
	if err != nil {
		return nil, err
	}
	// Mapped content is only valid until Close.
	if _, ok := b.(blobstore.Mappable); ok {
		data = bytes.Clone(data)
	}
	return data, nil
}

func loadIndex(ctx context.Context, store blobstore.BlobStore, name string) (*index.Flat, error) {
	_, comp := SplitCompression(name)

	if comp == CompressionNone {
		// DecodeFlat copies vectors out, so a mapped blob can be used in place.
		b, err := store.Open(ctx, name)
		if err != nil {
			return nil, err
		}
		defer b.Close()
		data, err := blobstore.ReadAll(b)
		if err != nil {
			return nil, err
		}
		return index.DecodeFlat(data)
	}

	data, err := readBlob(ctx, store, name)
	if err != nil {
		return nil, err
	}
	data, err = decompress(data, comp)
	if err != nil {
		return nil, err
	}
	return index.DecodeFlat(data)
}

// localPather is implemented by stores backed by a directory.
type localPather interface {
	Path(name string) string
}

// LoadCatalog reads the catalog opts.CatalogName from store on its own, for
// building a snapshot from a catalog file. The format follows the name.
func LoadCatalog(ctx context.Context, store blobstore.BlobStore, opts LoadOptions) (*catalog.Catalog, error) {
	base, comp := SplitCompression(opts.CatalogName)
	format, err := catalog.DetectFormat(base)
	if err != nil {
		return nil, err
	}

	var tracks []catalog.Track
	if format.Streamable() {
		data, err := readBlob(ctx, store, opts.CatalogName)
		if err != nil {
			return nil, err
		}
		if data, err = decompress(data, comp); err != nil {
			return nil, err
		}
		if format == catalog.FormatCSV {
			tracks, err = catalog.ReadCSV(bytes.NewReader(data))
		} else {
			tracks, err = catalog.ReadJSONL(bytes.NewReader(data))
		}
		if err != nil {
			return nil, err
		}
	} else {
		path, cleanup, err := materialize(ctx, store, opts.CatalogName, comp, opts.TempDir)
		if err != nil {
			return nil, err
		}
		defer cleanup()

		if format == catalog.FormatSQLite {
			tracks, err = catalog.ReadSQLite(ctx, path, opts.Table)
		} else {
			tracks, err = catalog.ReadParquet(ctx, path)
		}
		if err != nil {
			return nil, err
		}
	}

	return catalog.New(tracks)
}

// materialize returns a local file path holding the decompressed artifact.
func materialize(ctx context.Context, store blobstore.BlobStore, name string, comp Compression, tempDir string) (string, func(), error) {
	if lp, ok := store.(localPather); ok && comp == CompressionNone {
		return lp.Path(name), func() {}, nil
	}

	data, err := readBlob(ctx, store, name)
	if err != nil {
		return "", nil, err
	}
	if data, err = decompress(data, comp); err != nil {
		return "", nil, err
	}

	base, _ := SplitCompression(filepath.Base(name))
	f, err := os.CreateTemp(tempDir, "vibelist-*-"+base)
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}
