package vibelist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/heavenlydemon269/vibelist/blobstore"
	"github.com/heavenlydemon269/vibelist/catalog"
	"github.com/heavenlydemon269/vibelist/encoder"
	"github.com/heavenlydemon269/vibelist/engine"
	"github.com/heavenlydemon269/vibelist/index"
	"github.com/heavenlydemon269/vibelist/snapshot"
)

type (
	// Query asks for Count tracks matching Vibe that are not in Exclude.
	Query = engine.Query
	// Result is the outcome of Recommend.
	Result = engine.Result
	// Recommendation is one ranked track.
	Recommendation = engine.Recommendation
	// Policy selects how the index is searched.
	Policy = engine.Policy
)

const (
	PolicySingleShot = engine.PolicySingleShot
	PolicyAdaptive   = engine.PolicyAdaptive
)

// Vibelist serves recommendations from one catalog and its aligned index.
// It is safe for concurrent use.
type Vibelist struct {
	engine   *engine.Engine
	encoder  encoder.Encoder
	index    index.Index
	manifest *snapshot.Manifest

	logger           *Logger
	metricsCollector MetricsCollector
	closeEncoder     bool
	closed           atomic.Bool
}

// Open loads the snapshot in store and serves it with enc. Any problem with
// the snapshot or with enc's fit to it is reported as ErrConfiguration.
func Open(ctx context.Context, store blobstore.BlobStore, enc encoder.Encoder, optFns ...Option) (*Vibelist, error) {
	o := applyOptions(optFns)

	start := time.Now()
	snap, err := snapshot.Load(ctx, store, o.load)
	if err == nil && snap.Manifest != nil && snap.Manifest.Model != "" && !o.allowModel && snap.Manifest.Model != enc.Model() {
		err = fmt.Errorf("%w: %w", ErrConfiguration, &ErrModelMismatch{Snapshot: snap.Manifest.Model, Encoder: enc.Model()})
	}

	var vl *Vibelist
	if err == nil {
		vl, err = newVibelist(snap.Catalog, snap.Index, enc, o)
	}

	rows := 0
	if snap != nil {
		rows = snap.Catalog.Len()
	}
	elapsed := time.Since(start)
	o.metricsCollector.RecordLoad(rows, elapsed, err)
	if err != nil {
		o.logger.LogLoad(ctx, rows, 0, elapsed, err)
		return nil, err
	}
	o.logger.LogLoad(ctx, rows, snap.Index.Dimension(), elapsed, nil)

	vl.manifest = snap.Manifest
	return vl, nil
}

// New serves an already loaded catalog and index.
func New(cat *catalog.Catalog, idx index.Index, enc encoder.Encoder, optFns ...Option) (*Vibelist, error) {
	return newVibelist(cat, idx, enc, applyOptions(optFns))
}

func newVibelist(cat *catalog.Catalog, idx index.Index, enc encoder.Encoder, o options) (*Vibelist, error) {
	eng, err := engine.New(enc, idx, cat,
		engine.WithMargin(o.margin),
		engine.WithPolicy(o.policy),
		engine.WithLogger(o.logger.Logger),
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &Vibelist{
		engine:           eng,
		encoder:          enc,
		index:            idx,
		logger:           o.logger,
		metricsCollector: o.metricsCollector,
		closeEncoder:     o.closeEncoder,
	}, nil
}

// Recommend returns up to q.Count tracks for q.Vibe that are not in q.Exclude,
// nearest first.
func (vl *Vibelist) Recommend(ctx context.Context, q Query) (*Result, error) {
	if vl.closed.Load() {
		return nil, ErrClosed
	}

	start := time.Now()
	res, err := vl.engine.Recommend(ctx, q)
	err = translateError(err)
	elapsed := time.Since(start)

	searches, returned := 0, 0
	if res != nil {
		searches, returned = res.Searches, len(res.Recommendations)
	}
	vl.metricsCollector.RecordRecommend(q.Count, returned, searches, elapsed, err)
	vl.logger.LogRecommend(ctx, q, res, elapsed, err)

	return res, err
}

// Catalog returns the served catalog.
func (vl *Vibelist) Catalog() *catalog.Catalog { return vl.engine.Catalog() }

// Index returns the served index.
func (vl *Vibelist) Index() index.Index { return vl.index }

// Encoder returns the encoder vibes are embedded with.
func (vl *Vibelist) Encoder() encoder.Encoder { return vl.encoder }

// Manifest returns the snapshot manifest, or nil when the snapshot had none
// or the Vibelist was created with New.
func (vl *Vibelist) Manifest() *snapshot.Manifest { return vl.manifest }

// Policy returns the configured search policy.
func (vl *Vibelist) Policy() Policy { return vl.engine.Policy() }

// Close releases resources held by this Vibelist. Recommend fails with
// ErrClosed afterwards. Closing twice is a no-op.
func (vl *Vibelist) Close() error {
	if vl == nil || !vl.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	if vl.closeEncoder {
		if c, ok := vl.encoder.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	if c, ok := vl.index.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
