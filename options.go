package vibelist

import (
	"log/slog"

	"github.com/heavenlydemon269/vibelist/engine"
	"github.com/heavenlydemon269/vibelist/snapshot"
)

type options struct {
	margin           int
	policy           engine.Policy
	metricsCollector MetricsCollector
	logger           *Logger
	load             snapshot.LoadOptions
	allowModel       bool
	closeEncoder     bool
}

// Option configures Open and New.
type Option func(*options)

// WithMargin sets the number of extra candidates fetched per search on top of
// Count + |Exclude|. Defaults to engine.DefaultMargin.
func WithMargin(margin int) Option {
	return func(o *options) {
		o.margin = margin
	}
}

// WithPolicy selects single-shot or adaptive search.
//
// Example:
//
//	vl, _ := vibelist.Open(ctx, store, enc, vibelist.WithPolicy(vibelist.PolicyAdaptive))
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vibelist.BasicMetricsCollector{}
//	vl, _ := vibelist.Open(ctx, store, enc, vibelist.WithMetricsCollector(metrics))
//	// ... use vl ...
//	stats := metrics.GetStats()
//	fmt.Printf("Recommends: %d, short: %d\n", stats.RecommendCount, stats.RecommendShort)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithLoadOptions names the catalog and index of snapshots without a manifest.
func WithLoadOptions(lo snapshot.LoadOptions) Option {
	return func(o *options) {
		o.load = lo
	}
}

// WithAllowModelMismatch lets Open serve a snapshot whose manifest names a
// different embedding model than the encoder. Vectors of equal dimension from
// different models are not comparable, so this is only useful for tests and
// migrations.
func WithAllowModelMismatch() Option {
	return func(o *options) {
		o.allowModel = true
	}
}

// WithCloseEncoder makes Close also close the encoder when it implements io.Closer.
func WithCloseEncoder() Option {
	return func(o *options) {
		o.closeEncoder = true
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		margin:           engine.DefaultMargin,
		policy:           engine.PolicySingleShot,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
