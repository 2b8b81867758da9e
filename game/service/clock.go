package service

import (
	"context"
	"time"
)

// DefaultTickRate is the real-time simulation rate in ticks per second
const DefaultTickRate = 60

// Clock drives TickAll at a fixed rate until its context is cancelled
type Clock struct {
	service  SimService
	interval time.Duration
}

// NewClock creates a clock ticking rate times per second. A non-positive rate
// falls back to DefaultTickRate.
func NewClock(svc SimService, rate int) *Clock {
	if rate <= 0 {
		rate = DefaultTickRate
	}
	return &Clock{
		service:  svc,
		interval: time.Second / time.Duration(rate),
	}
}

// Interval returns the time between ticks
func (c *Clock) Interval() time.Duration {
	return c.interval
}

// Run blocks, ticking every non-idle session, until ctx is done
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.service.TickAll(ctx)
		}
	}
}
