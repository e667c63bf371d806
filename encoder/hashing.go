package encoder

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/heavenlydemon269/vibelist/distance"
)

// Compile-time check to ensure Hashing satisfies Encoder.
var _ Encoder = (*Hashing)(nil)

// trigramWeight scales character trigram features relative to whole words.
const trigramWeight = 0.5

// Hashing is a model-free encoder based on the hashing trick.
//
// Words and character trigrams are hashed into Dimension buckets with a
// signed xxhash, and the result is L2-normalized. Texts sharing vocabulary
// land close together under the cosine metric. Text without any letters or
// digits encodes to the zero vector.
type Hashing struct {
	dim      int
	maxRunes int
}

// NewHashing creates a hashing encoder with the given dimension.
func NewHashing(dim int, maxRunes int) (*Hashing, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("hashing encoder: dimension must be positive, got %d", dim)
	}
	return &Hashing{dim: dim, maxRunes: maxRunes}, nil
}

// Dimension implements Encoder.
func (h *Hashing) Dimension() int { return h.dim }

// Model implements Encoder.
func (h *Hashing) Model() string { return fmt.Sprintf("hashing-v1-%d", h.dim) }

// Encode implements Encoder. It never fails except on context cancellation.
func (h *Hashing) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dim)
	for _, word := range words(Prepare(text, h.maxRunes)) {
		h.add(vec, "w:"+word, 1)

		padded := []rune(" " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			h.add(vec, "t:"+string(padded[i:i+3]), trigramWeight)
		}
	}
	distance.NormalizeL2InPlace(vec)
	return vec, nil
}

func (h *Hashing) add(vec []float32, feature string, weight float32) {
	sum := xxhash.Sum64String(feature)
	idx := sum % uint64(h.dim)
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// words lowercases text and splits it on anything that is not a letter or digit.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
