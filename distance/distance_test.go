package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 32},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 0},
		{"Mixed", []float32{1, -1, 2}, []float32{1, 1, -2}, -4},
		{"Empty", []float32{}, []float32{}, 0},
		{"Single", []float32{2}, []float32{3}, 6},
		{"Unrolled", []float32{1, 1, 1, 1, 1, 1, 1}, []float32{1, 2, 3, 4, 5, 6, 7}, 28},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Dot(tt.a, tt.b), 1e-5)
		})
	}
}

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 27},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 0},
		{"Identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"Mixed", []float32{1, -1}, []float32{-1, 1}, 8},
		{"Empty", []float32{}, []float32{}, 0},
		{"Unrolled", []float32{0, 0, 0, 0, 0}, []float32{1, 1, 1, 1, 2}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SquaredL2(tt.a, tt.b), 1e-5)
		})
	}
}

func TestNormalizeL2(t *testing.T) {
	t.Run("InPlace", func(t *testing.T) {
		v := []float32{3, 4}
		require.True(t, NormalizeL2InPlace(v))
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
	})

	t.Run("ZeroVector", func(t *testing.T) {
		v := []float32{0, 0, 0}
		assert.False(t, NormalizeL2InPlace(v))
		assert.Equal(t, []float32{0, 0, 0}, v)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.False(t, NormalizeL2InPlace(nil))
	})

	t.Run("Copy", func(t *testing.T) {
		src := []float32{0, 2}
		dst, ok := NormalizeL2Copy(src)
		require.True(t, ok)
		assert.Equal(t, []float32{0, 2}, src)
		assert.InDelta(t, 1.0, dst[1], 1e-6)
	})
}

func TestProvider(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}

	cos, err := Provider(MetricCosine)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cos(a, b), 1e-6)
	assert.InDelta(t, 0.0, cos(a, a), 1e-6)

	l2, err := Provider(MetricL2)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, l2(a, b), 1e-6)

	dot, err := Provider(MetricDot)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, dot(a, a), 1e-6)

	_, err = Provider(Metric(42))
	assert.Error(t, err)
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in   string
		want Metric
	}{
		{"", MetricCosine},
		{"Cosine", MetricCosine},
		{"L2", MetricL2},
		{"euclidean", MetricL2},
		{"dot", MetricDot},
		{"IP", MetricDot},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMetric(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}

	_, err := ParseMetric("manhattan")
	assert.Error(t, err)
	assert.False(t, Metric(9).Valid())
	assert.Equal(t, "unknown(9)", Metric(9).String())
}

func TestNormalizeRejectsNaN(t *testing.T) {
	v := []float32{float32(math.NaN()), 1}
	assert.False(t, NormalizeL2InPlace(v))
}
