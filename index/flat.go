package index

import (
	"context"
	"slices"

	"github.com/heavenlydemon269/vibelist/distance"
	"github.com/heavenlydemon269/vibelist/internal/queue"
)

// Compile-time check to ensure Flat satisfies Index.
var _ Index = (*Flat)(nil)

// cancelCheckInterval is how many rows are scanned between context checks.
const cancelCheckInterval = 8192

// Flat is an exact nearest neighbour index.
//
// Vectors live in a single row-major slice. Rows are appended with Add while
// the index is being built; once it is shared for searching it must not be
// modified again.
type Flat struct {
	dim    int
	metric distance.Metric
	fn     distance.Func
	data   []float32
	n      int
}

// NewFlat creates an empty flat index.
func NewFlat(dim int, metric distance.Metric) (*Flat, error) {
	return NewFlatWithCapacity(dim, metric, 0)
}

// NewFlatWithCapacity creates an empty flat index with room for rows vectors.
func NewFlatWithCapacity(dim int, metric distance.Metric, rows int) (*Flat, error) {
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}
	fn, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}
	if rows < 0 {
		rows = 0
	}
	return &Flat{
		dim:    dim,
		metric: metric,
		fn:     fn,
		data:   make([]float32, 0, rows*dim),
	}, nil
}

// Dimension implements Index.
func (f *Flat) Dimension() int { return f.dim }

// Metric implements Index.
func (f *Flat) Metric() distance.Metric { return f.metric }

// Len implements Index.
func (f *Flat) Len() int { return f.n }

// Add appends vec as the next row and returns its position.
// The vector is copied. Under the cosine metric it is L2-normalized; a zero
// vector is stored unchanged.
func (f *Flat) Add(vec []float32) (uint32, error) {
	if len(vec) == 0 {
		return 0, ErrEmptyVector
	}
	if len(vec) != f.dim {
		return 0, &ErrDimensionMismatch{Expected: f.dim, Actual: len(vec)}
	}

	start := len(f.data)
	f.data = append(f.data, vec...)
	if f.metric.Normalizes() {
		distance.NormalizeL2InPlace(f.data[start:])
	}

	row := uint32(f.n)
	f.n++
	return row, nil
}

// Vector returns the stored vector at row. The returned slice aliases the
// index storage and must not be modified.
func (f *Flat) Vector(row uint32) ([]float32, bool) {
	if int(row) >= f.n {
		return nil, false
	}
	off := int(row) * f.dim
	return f.data[off : off+f.dim], true
}

// Search implements Index with a full scan.
func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if err := checkQuery(f.dim, query, k); err != nil {
		return nil, err
	}
	if k == 0 || f.n == 0 {
		return []Result{}, nil
	}
	if k > f.n {
		k = f.n
	}

	q := query
	if f.metric.Normalizes() {
		q = slices.Clone(query)
		distance.NormalizeL2InPlace(q)
	}

	top := queue.NewTopK(k)
	for row := 0; row < f.n; row++ {
		if row%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		off := row * f.dim
		top.Offer(uint32(row), f.fn(q, f.data[off:off+f.dim]))
	}

	items := top.Sorted()
	results := make([]Result, len(items))
	for i, it := range items {
		results[i] = Result{Row: it.Row, Distance: it.Distance}
	}
	return results, nil
}
