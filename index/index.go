package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/heavenlydemon269/vibelist/distance"
)

var (
	// ErrInvalidK is returned when a negative k is passed to Search.
	ErrInvalidK = errors.New("k must not be negative")

	// ErrInvalidDimension is returned when an index is created with a non-positive dimension.
	ErrInvalidDimension = errors.New("dimension must be positive")

	// ErrEmptyVector is returned when an empty vector is added or searched.
	ErrEmptyVector = errors.New("vector must not be empty")
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Result is one search hit.
type Result struct {
	// Row is the position of the hit in the catalog the index was built from.
	Row uint32

	// Distance to the query under the index metric. Lower is closer.
	Distance float32
}

// Index is a read-only nearest neighbour index over catalog rows.
//
// Implementations must be safe for concurrent Search calls.
type Index interface {
	// Dimension returns the vector dimensionality.
	Dimension() int

	// Metric returns the metric the index was built with.
	Metric() distance.Metric

	// Len returns the number of rows.
	Len() int

	// Search returns up to k rows closest to query, ordered by ascending
	// distance and then ascending row. k larger than Len is allowed.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
}

// checkQuery validates the common Search arguments.
func checkQuery(dim int, query []float32, k int) error {
	if k < 0 {
		return ErrInvalidK
	}
	if len(query) == 0 {
		return ErrEmptyVector
	}
	if len(query) != dim {
		return &ErrDimensionMismatch{Expected: dim, Actual: len(query)}
	}
	return nil
}

// CheckQuery validates Search arguments for implementations outside this package.
func CheckQuery(idx Index, query []float32, k int) error {
	return checkQuery(idx.Dimension(), query, k)
}
