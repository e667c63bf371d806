package engine

import (
	"fmt"
	"log/slog"
)

type options struct {
	margin int
	policy Policy
	logger *slog.Logger
}

func defaultOptions() options {
	return options{
		margin: DefaultMargin,
		policy: PolicySingleShot,
		logger: slog.New(slog.DiscardHandler),
	}
}

// Option configures an Engine.
type Option func(*options) error

// WithMargin sets the oversampling margin added to every search.
func WithMargin(margin int) Option {
	return func(o *options) error {
		if margin < 0 {
			return fmt.Errorf("margin must not be negative, got %d", margin)
		}
		o.margin = margin
		return nil
	}
}

// WithPolicy sets the search policy.
func WithPolicy(p Policy) Option {
	return func(o *options) error {
		if p != PolicySingleShot && p != PolicyAdaptive {
			return fmt.Errorf("invalid policy %s", p)
		}
		o.policy = p
		return nil
	}
}

// WithLogger sets the logger for per-round debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) error {
		if l != nil {
			o.logger = l
		}
		return nil
	}
}
