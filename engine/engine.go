package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/heavenlydemon269/vibelist/catalog"
	"github.com/heavenlydemon269/vibelist/encoder"
	"github.com/heavenlydemon269/vibelist/index"
)

// Query asks for Count tracks matching Vibe that are not in Exclude.
type Query struct {
	Vibe string
	// Exclude lists track IDs that must not be returned. Duplicates and IDs
	// unknown to the catalog are allowed.
	Exclude []string
	Count   int
}

// Recommendation is one ranked track.
type Recommendation struct {
	Track    catalog.Track
	Row      uint32
	Distance float32
}

// Result is the outcome of Recommend.
type Result struct {
	// Recommendations are ordered by ascending distance. There are at most
	// Query.Count of them and none is excluded.
	Recommendations []Recommendation
	// Searches is the number of index queries issued.
	Searches int
	// Candidates is the number of rows the last search returned.
	Candidates int
}

// IDs returns the track IDs of r in rank order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Recommendations))
	for i, rec := range r.Recommendations {
		ids[i] = rec.Track.ID
	}
	return ids
}

// Engine recommends catalog tracks for a vibe. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	enc  encoder.Encoder
	idx  index.Index
	cat  *catalog.Catalog
	opts options
}

// New creates an engine. The encoder must produce vectors of the index
// dimension and the index must hold exactly one row per catalog track.
func New(enc encoder.Encoder, idx index.Index, cat *catalog.Catalog, optFns ...Option) (*Engine, error) {
	if enc == nil || idx == nil || cat == nil {
		return nil, fmt.Errorf("engine: encoder, index and catalog are required")
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		if err := fn(&opts); err != nil {
			return nil, err
		}
	}

	if enc.Dimension() != idx.Dimension() {
		return nil, &index.ErrDimensionMismatch{Expected: idx.Dimension(), Actual: enc.Dimension()}
	}
	if idx.Len() != cat.Len() {
		return nil, fmt.Errorf("%w: catalog has %d rows, index has %d", ErrMisaligned, cat.Len(), idx.Len())
	}

	return &Engine{enc: enc, idx: idx, cat: cat, opts: opts}, nil
}

// Policy returns the configured search policy.
func (e *Engine) Policy() Policy { return e.opts.policy }

// Margin returns the configured oversampling margin.
func (e *Engine) Margin() int { return e.opts.margin }

// Catalog returns the catalog the engine serves.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Recommend returns up to q.Count tracks nearest to q.Vibe, skipping
// q.Exclude. A count of zero yields an empty result without encoding.
func (e *Engine) Recommend(ctx context.Context, q Query) (*Result, error) {
	if q.Count < 0 {
		return nil, ErrInvalidCount
	}
	res := &Result{Recommendations: []Recommendation{}}
	if q.Count == 0 {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec, err := e.enc.Encode(ctx, q.Vibe)
	if err != nil {
		return nil, fmt.Errorf("encode vibe: %w", err)
	}
	if err := encoder.Finite(vec); err != nil {
		return nil, fmt.Errorf("encode vibe: %w", err)
	}

	excluded := e.cat.Rows(slices.Values(q.Exclude))
	total := e.idx.Len()
	// No search returns more than total rows, so larger counts add nothing.
	k := addSat(addSat(min(q.Count, total), distinct(q.Exclude)), e.opts.margin)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hits, err := e.idx.Search(ctx, vec, k)
		if err != nil {
			return nil, fmt.Errorf("search index: %w", err)
		}
		res.Searches++
		res.Candidates = len(hits)

		res.Recommendations = res.Recommendations[:0]
		for _, h := range hits {
			if excluded.Contains(h.Row) {
				continue
			}
			t, ok := e.cat.At(h.Row)
			if !ok {
				return nil, fmt.Errorf("%w: index returned row %d", ErrMisaligned, h.Row)
			}
			res.Recommendations = append(res.Recommendations, Recommendation{Track: t, Row: h.Row, Distance: h.Distance})
			if len(res.Recommendations) == q.Count {
				break
			}
		}

		if len(res.Recommendations) == q.Count || e.opts.policy != PolicyAdaptive || k >= total {
			break
		}

		e.opts.logger.DebugContext(ctx, "result short, widening search",
			slog.Int("k", k),
			slog.Int("found", len(res.Recommendations)),
			slog.Int("count", q.Count),
		)
		k = min(max(k, 1)*2, total)
	}

	return res, nil
}

// addSat adds two non-negative ints, saturating at math.MaxInt.
func addSat(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

func distinct(ids []string) int {
	if len(ids) < 2 {
		return len(ids)
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
