package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/heavenlydemon269/vibelist/blobstore"
	"github.com/heavenlydemon269/vibelist/catalog"
	"github.com/heavenlydemon269/vibelist/distance"
	"github.com/heavenlydemon269/vibelist/snapshot"
)

type buildFlags struct {
	catalogPath string
	table       string
	out         string
	format      string
	compression string
	metric      string
	concurrency int
	batchSize   int
	quiet       bool
}

func newBuildCommand(flags *rootFlags) *cobra.Command {
	bf := &buildFlags{}
	defaults := snapshot.DefaultBuildOptions()

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Embed a catalog file and write a snapshot",
		Long: `Build reads a catalog (.csv, .jsonl, .sqlite or .parquet, optionally
.zst or .lz4 compressed), embeds every track with the configured encoder and
writes the catalog, the index and a manifest to --out (default: snapshot.uri).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			metric, err := distance.ParseMetric(bf.metric)
			if err != nil {
				return err
			}
			comp, err := snapshot.ParseCompression(bf.compression)
			if err != nil {
				return err
			}
			format, err := catalog.DetectFormat("catalog." + bf.format)
			if err != nil {
				return err
			}

			start := time.Now()
			cat, err := snapshot.LoadCatalog(ctx, blobstore.NewLocalStore(filepath.Dir(bf.catalogPath)), snapshot.LoadOptions{
				CatalogName: filepath.Base(bf.catalogPath),
				Table:       bf.table,
				TempDir:     a.cfg.Snapshot.TempDir,
			})
			if err != nil {
				return fmt.Errorf("read catalog %s: %w", bf.catalogPath, err)
			}
			a.logger.InfoContext(ctx, "catalog loaded",
				slog.String("path", bf.catalogPath),
				slog.Int("rows", cat.Len()),
			)

			enc, err := a.newEncoder()
			if err != nil {
				return err
			}

			opts := snapshot.BuildOptions{
				Metric:      metric,
				Concurrency: bf.concurrency,
				BatchSize:   bf.batchSize,
			}
			if !bf.quiet {
				opts.Progress = newProgress(cat.Len())
			}
			idx, err := snapshot.Build(ctx, cat, enc, opts)
			if err != nil {
				return err
			}

			out := bf.out
			if out == "" {
				out = a.cfg.Snapshot.URI
			}
			if scheme, _, dir, err := parseStoreURI(out); err == nil && (scheme == "" || scheme == "file") {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			store, err := a.openStore(ctx, out)
			if err != nil {
				return err
			}

			m, err := snapshot.Write(ctx, store, cat, idx, snapshot.WriteOptions{
				CatalogFormat: format,
				Compression:   comp,
				TempDir:       a.cfg.Snapshot.TempDir,
				Model:         enc.Model(),
			})
			if err != nil {
				return err
			}

			a.logger.InfoContext(ctx, "snapshot written",
				slog.String("uri", out),
				slog.Int("rows", m.Index.Rows),
				slog.Int("dimension", m.Dimension),
				slog.String("model", m.Model),
				slog.Duration("elapsed", time.Since(start)),
			)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&bf.catalogPath, "catalog", "", "catalog file to embed")
	f.StringVar(&bf.table, "table", catalog.DefaultTable, "table holding the tracks of a SQLite catalog")
	f.StringVarP(&bf.out, "out", "o", "", "snapshot URI to write (default: snapshot.uri)")
	f.StringVar(&bf.format, "format", string(catalog.FormatJSONL), "catalog format inside the snapshot: csv, jsonl or sqlite")
	f.StringVar(&bf.compression, "compression", snapshot.CompressionZSTD.String(), "artifact compression: none, zstd or lz4")
	f.StringVar(&bf.metric, "metric", defaults.Metric.String(), "distance metric: cosine, l2 or dot")
	f.IntVar(&bf.concurrency, "concurrency", defaults.Concurrency, "batches encoded at once")
	f.IntVar(&bf.batchSize, "batch-size", defaults.BatchSize, "tracks per encoder call")
	f.BoolVarP(&bf.quiet, "quiet", "q", false, "hide the progress bar")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}

// newProgress returns a BuildOptions.Progress callback that drives a bar on
// stderr. Batches may finish out of order, so the bar only moves forward.
func newProgress(total int) func(done, total int) {
	bar := progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionSetDescription("Embedding tracks..."),
		progressbar.OptionShowCount(),
		progressbar.OptionFullWidth(),
		progressbar.OptionClearOnFinish(),
	)

	var (
		mu   sync.Mutex
		seen int
	)
	return func(done, _ int) {
		mu.Lock()
		defer mu.Unlock()
		if done <= seen {
			return
		}
		seen = done
		_ = bar.Set(done)
	}
}
