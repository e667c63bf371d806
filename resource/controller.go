// Package resource bounds the work a host lets through to the recommender.
package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrBusy is returned by TryAcquire when every slot is taken.
var ErrBusy = errors.New("resource: all slots busy")

// Config holds resource limits.
type Config struct {
	// MaxConcurrent is the maximum number of requests in flight.
	// If 0, concurrency is only tracked.
	MaxConcurrent int64

	// RequestsPerSecond limits how fast requests are admitted, which bounds
	// the load on remote encoders. If 0, unlimited.
	RequestsPerSecond float64

	// Burst is the number of requests admitted at once above the rate.
	// If 0, defaults to 1.
	Burst int
}

// Controller admits requests under a concurrency and a rate limit.
// A nil *Controller admits everything.
type Controller struct {
	cfg Config

	sem      *semaphore.Weighted // nil if unlimited
	inFlight atomic.Int64

	limiter *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MaxConcurrent > 0 {
		c.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return c
}

// Acquire waits for the rate limit and a free slot. The returned func
// releases the slot and must be called exactly once.
func (c *Controller) Acquire(ctx context.Context) (func(), error) {
	if c == nil {
		return func() {}, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}

	c.inFlight.Add(1)
	return c.release, nil
}

// TryAcquire takes a slot without blocking. It fails with ErrBusy when no
// slot is free or the rate limit has no token left.
func (c *Controller) TryAcquire() (func(), error) {
	if c == nil {
		return func() {}, nil
	}

	if c.limiter != nil && !c.limiter.Allow() {
		return nil, ErrBusy
	}
	if c.sem != nil && !c.sem.TryAcquire(1) {
		return nil, ErrBusy
	}

	c.inFlight.Add(1)
	return c.release, nil
}

func (c *Controller) release() {
	if c.sem != nil {
		c.sem.Release(1)
	}
	c.inFlight.Add(-1)
}

// InFlight returns the number of admitted requests not yet released.
func (c *Controller) InFlight() int64 {
	if c == nil {
		return 0
	}
	return c.inFlight.Load()
}

// Limit returns the configured concurrency limit, 0 when unlimited.
func (c *Controller) Limit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MaxConcurrent
}
