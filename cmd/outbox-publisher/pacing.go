package main

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

// pacing spaces polls: a steady interval when idle, doubling up to maxBackoff
// after consecutive batch errors.
type pacing struct {
	base    time.Duration
	current time.Duration
}

func newPacing(base time.Duration) pacing {
	if base <= 0 {
		base = defaultPollMs * time.Millisecond
	}
	return pacing{base: base, current: base}
}

func (p *pacing) idle() time.Duration {
	p.current = p.base
	return withJitter(p.base)
}

func (p *pacing) failed() time.Duration {
	p.current = min(p.current*2, maxBackoff)
	return withJitter(p.current)
}

func (p *pacing) reset() {
	p.current = p.base
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
