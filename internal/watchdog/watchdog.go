// Package watchdog supervises forward progress of the main loop.
// If Feed is not called within the timeout the supervisor expires and
// invokes its reset action exactly once.
package watchdog

import (
	"context"
	"sync"
	"time"

	"airmonitor/internal/logger"
)

// State of the supervisor.
type State int

const (
	Disarmed State = iota
	Armed
	Expired
)

func (s State) String() string {
	switch s {
	case Disarmed:
		return "DISARMED"
	case Armed:
		return "ARMED"
	case Expired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Supervisor is safe for concurrent use: the loop feeds it while Run checks it
// from its own goroutine.
type Supervisor struct {
	timeout  time.Duration
	clock    Clock
	onExpire func()
	log      *logger.Logger

	mu       sync.Mutex
	state    State
	lastFed  time.Time
	expireMu sync.Once
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Supervisor) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Supervisor) { s.log = l }
}

// New returns a disarmed supervisor. timeout is fixed for the process lifetime.
func New(timeout time.Duration, onExpire func(), opts ...Option) *Supervisor {
	s := &Supervisor{
		timeout:  timeout,
		clock:    systemClock{},
		onExpire: onExpire,
		log:      logger.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Timeout returns the configured timeout.
func (s *Supervisor) Timeout() time.Duration { return s.timeout }

// Arm starts the countdown. Arming twice is a no-op.
func (s *Supervisor) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Disarmed {
		return
	}
	s.state = Armed
	s.lastFed = s.clock.Now()
	s.log.Infow("watchdog_armed", "timeout", s.timeout)
}

// Feed restarts the countdown. Feeds after expiry are ignored.
func (s *Supervisor) Feed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Armed {
		return
	}
	s.lastFed = s.clock.Now()
}

// State reports the current state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastFed reports when Feed (or Arm) last succeeded.
func (s *Supervisor) LastFed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFed
}

// Check expires the supervisor when the timeout has elapsed since the last feed.
// It reports whether the supervisor is expired after the check.
func (s *Supervisor) Check() bool {
	s.mu.Lock()
	if s.state != Armed {
		expired := s.state == Expired
		s.mu.Unlock()
		return expired
	}
	starved := s.clock.Now().Sub(s.lastFed)
	if starved < s.timeout {
		s.mu.Unlock()
		return false
	}
	s.state = Expired
	s.mu.Unlock()

	s.log.Errorw("watchdog_expired", "starved_for", starved, "timeout", s.timeout)
	s.expireMu.Do(func() {
		if s.onExpire != nil {
			s.onExpire()
		}
	})
	return true
}

// Run checks the supervisor at a quarter of the timeout until ctx is done or it expires.
func (s *Supervisor) Run(ctx context.Context) {
	interval := s.timeout / 4
	if interval <= 0 {
		interval = time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if s.Check() {
				return
			}
		}
	}
}
