package vibelist

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// prometheus subpackage provides one.
type MetricsCollector interface {
	// RecordRecommend is called after each Recommend. returned is the number
	// of tracks in the result and searches the number of index queries.
	RecordRecommend(count, returned, searches int, duration time.Duration, err error)

	// RecordLoad is called once by Open.
	RecordLoad(rows int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRecommend(int, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordLoad(int, time.Duration, error)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	RecommendCount      atomic.Int64
	RecommendErrors     atomic.Int64
	RecommendShort      atomic.Int64
	RecommendTotalNanos atomic.Int64
	SearchCount         atomic.Int64
	LoadCount           atomic.Int64
	LoadErrors          atomic.Int64
	Rows                atomic.Int64
}

// RecordRecommend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRecommend(count, returned, searches int, duration time.Duration, err error) {
	b.RecommendCount.Add(1)
	b.RecommendTotalNanos.Add(duration.Nanoseconds())
	b.SearchCount.Add(int64(searches))
	if err != nil {
		b.RecommendErrors.Add(1)
		return
	}
	if returned < count {
		b.RecommendShort.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(rows int, duration time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
		return
	}
	b.Rows.Store(int64(rows))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RecommendCount:    b.RecommendCount.Load(),
		RecommendErrors:   b.RecommendErrors.Load(),
		RecommendShort:    b.RecommendShort.Load(),
		RecommendAvgNanos: b.getAvgRecommendNanos(),
		SearchCount:       b.SearchCount.Load(),
		LoadCount:         b.LoadCount.Load(),
		LoadErrors:        b.LoadErrors.Load(),
		Rows:              b.Rows.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgRecommendNanos() int64 {
	count := b.RecommendCount.Load()
	if count == 0 {
		return 0
	}
	return b.RecommendTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RecommendCount    int64
	RecommendErrors   int64
	RecommendShort    int64
	RecommendAvgNanos int64
	SearchCount       int64
	LoadCount         int64
	LoadErrors        int64
	Rows              int64
}
