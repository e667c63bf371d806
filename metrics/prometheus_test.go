package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heavenlydemon269/vibelist"
	"github.com/heavenlydemon269/vibelist/metrics"
	"github.com/heavenlydemon269/vibelist/testutil"
)

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := metrics.NewPrometheus(reg)

	p.RecordRecommend(5, 5, 1, time.Millisecond, nil)
	p.RecordRecommend(5, 2, 3, time.Millisecond, nil)
	p.RecordRecommend(5, 0, 0, time.Millisecond, errors.New("boom"))
	p.RecordLoad(42, time.Second, nil)

	count, err := promtest.GatherAndCount(reg, "vibelist_recommend_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 4.0, promtest.ToFloat64(p.Searches()))
	assert.Equal(t, 42.0, promtest.ToFloat64(p.Rows()))
}

func TestPrometheusWithVibelist(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := metrics.NewPrometheus(reg)

	f := testutil.UpbeatFixture(t)
	vl, err := vibelist.New(f.Catalog, f.Index, f.Encoder, vibelist.WithMetricsCollector(p))
	require.NoError(t, err)

	_, err = vl.Recommend(context.Background(), vibelist.Query{Vibe: "upbeat", Count: 3})
	require.NoError(t, err)
	assert.Equal(t, 1.0, promtest.ToFloat64(p.Searches()))
}
