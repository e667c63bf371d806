package snapshot

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/heavenlydemon269/vibelist/catalog"
	"github.com/heavenlydemon269/vibelist/distance"
	"github.com/heavenlydemon269/vibelist/encoder"
	"github.com/heavenlydemon269/vibelist/index"
)

// BuildOptions controls Build.
type BuildOptions struct {
	Metric distance.Metric
	// Concurrency bounds the number of batches encoded at once.
	Concurrency int
	// BatchSize is the number of tracks per encoder call.
	BatchSize int
	// Progress, if set, is called after each batch with the number of rows
	// encoded so far. It may be called from several goroutines.
	Progress func(done, total int)
}

// DefaultBuildOptions returns cosine, one batch per CPU and 64 tracks per batch.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Metric:      distance.MetricCosine,
		Concurrency: runtime.GOMAXPROCS(0),
		BatchSize:   64,
	}
}

// Build embeds the embedding text of every track and returns an index whose
// row i holds the vector of catalog row i.
func Build(ctx context.Context, cat *catalog.Catalog, enc encoder.Encoder, opts BuildOptions) (*index.Flat, error) {
	if cat == nil || enc == nil {
		return nil, errors.New("build: catalog and encoder are required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	total := cat.Len()
	texts := make([]string, total)
	for row, t := range cat.All() {
		texts[row] = catalog.EmbeddingText(t)
	}

	vecs := make([][]float32, total)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for start := 0; start < total; start += opts.BatchSize {
		end := min(start+opts.BatchSize, total)
		g.Go(func() error {
			out, err := encoder.EncodeAll(gctx, enc, texts[start:end])
			if err != nil {
				return fmt.Errorf("encode rows %d-%d: %w", start, end-1, err)
			}
			if len(out) != end-start {
				return fmt.Errorf("encode rows %d-%d: got %d vectors", start, end-1, len(out))
			}
			copy(vecs[start:end], out)
			n := done.Add(int64(end - start))
			if opts.Progress != nil {
				opts.Progress(int(n), total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx, err := index.NewFlatWithCapacity(enc.Dimension(), opts.Metric, total)
	if err != nil {
		return nil, err
	}
	for row, v := range vecs {
		if _, err := idx.Add(v); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
	}
	return idx, nil
}
