package pgvector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/heavenlydemon269/vibelist/distance"
	"github.com/heavenlydemon269/vibelist/index"
)

func TestSearchQuery(t *testing.T) {
	tests := []struct {
		metric distance.Metric
		op     string
	}{
		{distance.MetricCosine, "<=>"},
		{distance.MetricL2, "<->"},
		{distance.MetricDot, "<#>"},
	}
	for _, tt := range tests {
		t.Run(tt.metric.String(), func(t *testing.T) {
			q := searchQuery("track_embeddings", tt.metric)
			assert.Equal(t,
				"SELECT row_id, embedding "+tt.op+" $1 AS distance FROM track_embeddings ORDER BY distance, row_id LIMIT $2",
				q)
		})
	}
}

func TestAdjust(t *testing.T) {
	assert.Equal(t, float32(4), adjust(distance.MetricL2, 2))
	assert.Equal(t, float32(0.25), adjust(distance.MetricCosine, 0.25))
	assert.Equal(t, float32(-3), adjust(distance.MetricDot, -3))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validate("track_embeddings", 384, distance.MetricCosine))
	assert.Error(t, validate("tracks; DROP TABLE x", 384, distance.MetricCosine))
	assert.Error(t, validate("1tracks", 384, distance.MetricCosine))
	assert.ErrorIs(t, validate("tracks", 0, distance.MetricCosine), index.ErrInvalidDimension)
	assert.Error(t, validate("tracks", 8, distance.Metric(12)))
}
