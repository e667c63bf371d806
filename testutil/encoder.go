package testutil

import (
	"context"
	"sync/atomic"

	"github.com/heavenlydemon269/vibelist/encoder"
)

// FixedEncoder returns preset vectors by input text. Unknown input yields
// the Fallback vector, or a zero vector when Fallback is nil.
type FixedEncoder struct {
	Dim      int
	Vectors  map[string][]float32
	Fallback []float32
	// Err, when set, is returned by every call.
	Err error

	calls atomic.Int64
}

// Encode implements encoder.Encoder. Text is prepared with encoder.Prepare
// before lookup.
func (e *FixedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Err != nil {
		return nil, e.Err
	}
	v, ok := e.Vectors[encoder.Prepare(text, encoder.DefaultMaxInputRunes)]
	if !ok {
		v = e.Fallback
	}
	out := make([]float32, e.Dim)
	copy(out, v)
	return out, nil
}

// Dimension implements encoder.Encoder.
func (e *FixedEncoder) Dimension() int { return e.Dim }

// Model implements encoder.Encoder.
func (e *FixedEncoder) Model() string { return "fixed" }

// Calls returns the number of Encode calls.
func (e *FixedEncoder) Calls() int64 { return e.calls.Load() }
