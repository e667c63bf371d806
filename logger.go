package vibelist

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with vibelist-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogRecommend logs a recommend call.
func (l *Logger) LogRecommend(ctx context.Context, q Query, res *Result, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "recommend failed",
			"count", q.Count,
			"exclude", len(q.Exclude),
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "recommend completed",
		"count", q.Count,
		"exclude", len(q.Exclude),
		"results", len(res.Recommendations),
		"searches", res.Searches,
		"elapsed", elapsed,
	)
	if len(res.Recommendations) < q.Count {
		l.DebugContext(ctx, "recommend result short",
			"count", q.Count,
			"results", len(res.Recommendations),
			"candidates", res.Candidates,
		)
	}
}

// LogLoad logs a snapshot load.
func (l *Logger) LogLoad(ctx context.Context, rows, dimension int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot load failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "snapshot loaded",
		"rows", rows,
		"dimension", dimension,
		"elapsed", elapsed,
	)
}
