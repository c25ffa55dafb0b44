package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"airmonitor/internal/watchdog"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestBootSupervised_StalledStartupExpires(t *testing.T) {
	clock := &stepClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	expired := make(chan struct{})
	wd := watchdog.New(40*time.Millisecond, func() { close(expired) }, watchdog.WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stalled := false
	boot := func(ctx context.Context) {
		wd.Arm()
		// a later startup step hangs past the timeout
		clock.Advance(time.Second)
		select {
		case <-expired:
		case <-time.After(2 * time.Second):
			stalled = true
		}
	}

	var wg sync.WaitGroup
	bootSupervised(ctx, &wg, wd, boot)
	cancel()
	wg.Wait()

	if stalled {
		t.Fatalf("watchdog did not expire during a stalled boot")
	}
	if got := wd.State(); got != watchdog.Expired {
		t.Fatalf("state = %v, want %v", got, watchdog.Expired)
	}
}

func TestBootSupervised_DisarmedBootDoesNotExpire(t *testing.T) {
	clock := &stepClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	wd := watchdog.New(20*time.Millisecond, func() { t.Errorf("unexpected reset") }, watchdog.WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	bootSupervised(ctx, &wg, wd, func(context.Context) {
		clock.Advance(time.Second)
		time.Sleep(30 * time.Millisecond)
	})
	cancel()
	wg.Wait()

	if got := wd.State(); got != watchdog.Disarmed {
		t.Fatalf("state = %v, want %v", got, watchdog.Disarmed)
	}
}
