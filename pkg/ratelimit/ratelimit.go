package ratelimit

import (
	"context"
	"time"
)

// Pacer enforces a fixed pause between consecutive calls against a remote
// service. There is no jitter and no adaptive backoff: every pause is
// exactly Delay long.
type Pacer struct {
	delay time.Duration
}

// NewPacer returns a Pacer that pauses for delay. A delay <= 0 never blocks.
func NewPacer(delay time.Duration) *Pacer {
	if delay < 0 {
		delay = 0
	}
	return &Pacer{delay: delay}
}

// Delay reports the configured pause.
func (p *Pacer) Delay() time.Duration {
	if p == nil {
		return 0
	}
	return p.delay
}

// Wait blocks for the configured delay, or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.delay == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
