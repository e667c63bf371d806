package encoder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxInputRunes is the input length kept by Prepare when no limit is configured.
const DefaultMaxInputRunes = 2048

var (
	// ErrInvalidEmbedding is returned when a backend produces NaN or Inf values.
	ErrInvalidEmbedding = errors.New("embedding contains invalid value")

	// ErrUnavailable is returned while a circuit breaker rejects calls.
	ErrUnavailable = errors.New("encoder unavailable")
)

// Encoder maps text to a vector of Dimension() floats.
//
// Encode must be deterministic for a given model: equal input yields an equal
// vector. Implementations must be safe for concurrent use.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the length of every vector Encode produces.
	Dimension() int

	// Model names the embedding model, for example "text-embedding-3-small".
	Model() string
}

// BatchEncoder is implemented by encoders that embed many texts per call.
type BatchEncoder interface {
	Encoder
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EncodeAll embeds texts, batching when enc supports it.
func EncodeAll(ctx context.Context, enc Encoder, texts []string) ([][]float32, error) {
	if b, ok := enc.(BatchEncoder); ok {
		return b.EncodeBatch(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := enc.Encode(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Prepare normalizes text and truncates it to at most maxRunes runes.
// maxRunes <= 0 selects DefaultMaxInputRunes. Invalid UTF-8 bytes are
// replaced with U+FFFD.
func Prepare(text string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxInputRunes
	}
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	text = strings.Join(strings.Fields(norm.NFC.String(text)), " ")
	return Truncate(text, maxRunes)
}

// Truncate returns the first maxRunes runes of s.
func Truncate(s string, maxRunes int) string {
	if maxRunes < 0 {
		maxRunes = 0
	}
	if len(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// Validate checks that vec has the expected dimension and finite values.
func Validate(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("embedding has %d values, expected %d", len(vec), dim)
	}
	return Finite(vec)
}

// Finite returns ErrInvalidEmbedding if vec holds a NaN or an infinity.
func Finite(vec []float32) error {
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ErrInvalidEmbedding
		}
	}
	return nil
}
