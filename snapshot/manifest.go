package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/heavenlydemon269/vibelist/blobstore"
	"github.com/heavenlydemon269/vibelist/catalog"
)

const (
	// ManifestName is the blob name of the manifest inside a snapshot.
	ManifestName = "manifest.json"
	// ManifestVersion is the manifest schema written by this package.
	ManifestVersion = 1

	// DefaultCatalogName and DefaultIndexName are used when no manifest exists.
	DefaultCatalogName = "catalog.csv"
	DefaultIndexName   = "index.vbl"
)

// Manifest describes a snapshot.
type Manifest struct {
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	Catalog    Artifact  `json:"catalog"`
	Index      Artifact  `json:"index"`
	Metric     string    `json:"metric"`
	Model      string    `json:"model,omitempty"`
	Dimension  int       `json:"dimension"`
	TextFormat int       `json:"text_format"`
}

// Artifact names one file of a snapshot.
type Artifact struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
	// Table is the SQLite table holding the catalog, if any.
	Table string `json:"table,omitempty"`
}

func (m *Manifest) validate() error {
	if m.Version != ManifestVersion {
		return fmt.Errorf("unsupported manifest version: %d (expected %d)", m.Version, ManifestVersion)
	}
	if m.Catalog.Path == "" || m.Index.Path == "" {
		return errors.New("manifest must name catalog and index artifacts")
	}
	if m.TextFormat != catalog.TextFormatVersion {
		return fmt.Errorf("unsupported text format %d (expected %d)", m.TextFormat, catalog.TextFormatVersion)
	}
	if m.Catalog.Rows != m.Index.Rows {
		return fmt.Errorf("manifest row counts differ: catalog %d, index %d", m.Catalog.Rows, m.Index.Rows)
	}
	return nil
}

// ReadManifest reads the manifest of the snapshot in store. It returns an
// error matching blobstore.ErrNotFound when the snapshot has none.
func ReadManifest(ctx context.Context, store blobstore.BlobStore) (*Manifest, error) {
	b, err := store.Open(ctx, ManifestName)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	data, err := blobstore.ReadAll(b)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// WriteManifest stores m in ws.
func WriteManifest(ctx context.Context, ws blobstore.WritableStore, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return blobstore.Put(ctx, ws, ManifestName, append(data, '\n'))
}
