package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/heavenlydemon269/vibelist/blobstore"
	"github.com/heavenlydemon269/vibelist/catalog"
	"github.com/heavenlydemon269/vibelist/index"
)

// WriteOptions controls Write.
type WriteOptions struct {
	// CatalogFormat is csv, jsonl or sqlite. Defaults to jsonl.
	CatalogFormat catalog.Format
	Compression   Compression
	// TempDir holds the SQLite database while it is written.
	TempDir string
	// Model is recorded in the manifest.
	Model string
}

// Write stores cat, idx and a manifest describing them in ws.
func Write(ctx context.Context, ws blobstore.WritableStore, cat *catalog.Catalog, idx *index.Flat, opts WriteOptions) (*Manifest, error) {
	if cat.Len() != idx.Len() {
		return nil, configError("catalog has %d rows but index has %d", cat.Len(), idx.Len())
	}
	if opts.CatalogFormat == "" {
		opts.CatalogFormat = catalog.FormatJSONL
	}
	if opts.CatalogFormat == catalog.FormatParquet {
		return nil, fmt.Errorf("cannot write catalog as %s", opts.CatalogFormat)
	}

	catalogName := "catalog." + string(opts.CatalogFormat) + opts.Compression.Suffix()
	indexName := DefaultIndexName + opts.Compression.Suffix()

	tracks := make([]catalog.Track, 0, cat.Len())
	for _, t := range cat.All() {
		tracks = append(tracks, t)
	}

	err := writeArtifact(ctx, ws, catalogName, opts.Compression, func(w io.Writer) error {
		switch opts.CatalogFormat {
		case catalog.FormatCSV:
			return catalog.WriteCSV(w, tracks)
		case catalog.FormatSQLite:
			return copySQLite(ctx, w, tracks, opts.TempDir)
		default:
			return catalog.WriteJSONL(w, tracks)
		}
	})
	if err != nil {
		return nil, err
	}

	err = writeArtifact(ctx, ws, indexName, opts.Compression, func(w io.Writer) error {
		_, err := idx.WriteTo(w)
		return err
	})
	if err != nil {
		return nil, err
	}

	var table string
	if opts.CatalogFormat == catalog.FormatSQLite {
		table = catalog.DefaultTable
	}

	m := &Manifest{
		Version:    ManifestVersion,
		CreatedAt:  time.Now().UTC(),
		Catalog:    Artifact{Path: catalogName, Rows: cat.Len(), Table: table},
		Index:      Artifact{Path: indexName, Rows: idx.Len()},
		Metric:     idx.Metric().String(),
		Model:      opts.Model,
		Dimension:  idx.Dimension(),
		TextFormat: catalog.TextFormatVersion,
	}
	if err := WriteManifest(ctx, ws, m); err != nil {
		return nil, err
	}
	return m, nil
}

func writeArtifact(ctx context.Context, ws blobstore.WritableStore, name string, comp Compression, fn func(w io.Writer) error) error {
	blob, err := ws.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	cw, err := compressWriter(blob, comp)
	if err != nil {
		_ = blob.Close()
		return err
	}
	if err := fn(cw); err != nil {
		_ = cw.Close()
		_ = blob.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := errors.Join(cw.Close(), blob.Close()); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

// copySQLite writes tracks to a temporary SQLite database and copies the
// database file to w.
func copySQLite(ctx context.Context, w io.Writer, tracks []catalog.Track, tempDir string) error {
	dir, err := os.MkdirTemp(tempDir, "vibelist-sqlite-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "catalog.sqlite")
	if err := catalog.WriteSQLite(ctx, path, catalog.DefaultTable, tracks); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
