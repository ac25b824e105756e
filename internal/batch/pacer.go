package batch

import (
	"context"
	"sync"
	"time"
)

// Pacer spaces provider calls so a batch stays under the remote rate limit.
// The gap is measured from the end of one call to the start of the next, so
// provider latency never stacks on top of the interval. A zero or negative
// interval disables pacing.
type Pacer struct {
	interval time.Duration

	mu       sync.Mutex
	lastDone time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer returns a Pacer enforcing the given minimum gap between calls.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Wait blocks until the next call may start. The first call passes through
// immediately; later calls wait out the remainder of the interval since the
// previous Mark.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return nil
	}

	p.mu.Lock()
	last := p.lastDone
	p.mu.Unlock()

	if last.IsZero() {
		return nil
	}
	remaining := p.interval - p.now().Sub(last)
	if remaining <= 0 {
		return nil
	}
	return p.sleep(ctx, remaining)
}

// Mark records that a provider call just finished, successful or not.
func (p *Pacer) Mark() {
	p.mu.Lock()
	p.lastDone = p.now()
	p.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
