package batch

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestPacer(interval time.Duration) (*Pacer, *fakeClock, *[]time.Duration) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	var sleeps []time.Duration
	p := NewPacer(interval)
	p.now = func() time.Time { return clock.now }
	p.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		clock.advance(d)
		return nil
	}
	return p, clock, &sleeps
}

func TestPacerFirstCallImmediate(t *testing.T) {
	p, _, sleeps := newTestPacer(4500 * time.Millisecond)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("first call should not sleep, slept %v", *sleeps)
	}
}

func TestPacerWaitsRemainder(t *testing.T) {
	p, clock, sleeps := newTestPacer(4500 * time.Millisecond)
	p.Mark()
	clock.advance(1 * time.Second)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 3500*time.Millisecond {
		t.Fatalf("expected single 3.5s sleep, got %v", *sleeps)
	}
}

func TestPacerSkipsWaitWhenIntervalElapsed(t *testing.T) {
	p, clock, sleeps := newTestPacer(4500 * time.Millisecond)
	p.Mark()
	clock.advance(5 * time.Second)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("expected no sleep after interval elapsed, got %v", *sleeps)
	}
}

func TestPacerDisabled(t *testing.T) {
	p, _, sleeps := newTestPacer(0)
	p.Mark()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("disabled pacer should not sleep, got %v", *sleeps)
	}
}

func TestPacerSequenceTotalDelay(t *testing.T) {
	interval := 4500 * time.Millisecond
	p, _, sleeps := newTestPacer(interval)

	const calls = 5
	for i := 0; i < calls; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d failed: %v", i, err)
		}
		// The provider call itself takes no simulated time here.
		p.Mark()
	}

	var total time.Duration
	for _, d := range *sleeps {
		total += d
	}
	want := time.Duration(calls-1) * interval
	if total != want {
		t.Fatalf("expected %v of pacing across %d calls, got %v", want, calls, total)
	}
}

func TestPacerPropagatesContextError(t *testing.T) {
	p := NewPacer(4500 * time.Millisecond)
	p.Mark()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Fatalf("zero duration should return immediately: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
