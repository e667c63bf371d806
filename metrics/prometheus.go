// Package metrics exports vibelist operations to Prometheus.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	vl, _ := vibelist.Open(ctx, store, enc,
//	    vibelist.WithMetricsCollector(metrics.NewPrometheus(reg)))
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/heavenlydemon269/vibelist"
)

const namespace = "vibelist"

// Prometheus implements vibelist.MetricsCollector.
type Prometheus struct {
	recommends       *prometheus.CounterVec
	recommendLatency prometheus.Histogram
	searches         prometheus.Counter
	loads            *prometheus.CounterVec
	loadDuration     prometheus.Gauge
	rows             prometheus.Gauge
}

var _ vibelist.MetricsCollector = (*Prometheus)(nil)

// NewPrometheus creates the collectors and registers them with reg. A nil reg
// means prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		recommends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_total",
			Help:      "Recommend calls by outcome (ok, short, error).",
		}, []string{"outcome"}),
		recommendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_duration_seconds",
			Help:      "Recommend latency including vibe encoding.",
			// Remote encoders dominate; local search is sub-millisecond.
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_searches_total",
			Help:      "Index searches issued by Recommend.",
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_loads_total",
			Help:      "Snapshot loads by outcome.",
		}, []string{"outcome"}),
		loadDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_load_duration_seconds",
			Help:      "Duration of the last snapshot load.",
		}),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_rows",
			Help:      "Tracks in the served catalog.",
		}),
	}
	reg.MustRegister(p.recommends, p.recommendLatency, p.searches, p.loads, p.loadDuration, p.rows)
	return p
}

// RecordRecommend implements vibelist.MetricsCollector.
func (p *Prometheus) RecordRecommend(count, returned, searches int, d time.Duration, err error) {
	p.recommendLatency.Observe(d.Seconds())
	p.searches.Add(float64(searches))
	switch {
	case err != nil:
		p.recommends.WithLabelValues("error").Inc()
	case returned < count:
		p.recommends.WithLabelValues("short").Inc()
	default:
		p.recommends.WithLabelValues("ok").Inc()
	}
}

// RecordLoad implements vibelist.MetricsCollector.
func (p *Prometheus) RecordLoad(rows int, d time.Duration, err error) {
	p.loadDuration.Set(d.Seconds())
	if err != nil {
		p.loads.WithLabelValues("error").Inc()
		return
	}
	p.loads.WithLabelValues("ok").Inc()
	p.rows.Set(float64(rows))
}

// Searches returns the index search counter.
func (p *Prometheus) Searches() prometheus.Counter { return p.searches }

// Rows returns the catalog size gauge.
func (p *Prometheus) Rows() prometheus.Gauge { return p.rows }
