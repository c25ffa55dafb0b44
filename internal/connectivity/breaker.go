package connectivity

import (
	"context"
	"errors"
	"sync"
	"time"

	"airmonitor/internal/logger"
	"airmonitor/internal/metrics"
)

// BreakerState is the circuit state.
type BreakerState int

const (
	Closed BreakerState = iota
	HalfOpen
	Open
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case HalfOpen:
		return "half_open"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned while the breaker fast-fails.
var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	MaxFailures  int
	ResetTimeout time.Duration
}

// Breaker stops calling a failing backend for ResetTimeout after MaxFailures
// consecutive errors, then lets one trial call through.
type Breaker struct {
	name string
	cfg  BreakerConfig
	log  *logger.Logger
	now  func() time.Time

	mu          sync.Mutex
	state       BreakerState
	recentFails int
	openedAt    time.Time
}

func NewBreaker(name string, cfg BreakerConfig, log *logger.Logger) *Breaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	b := &Breaker{name: name, cfg: cfg, log: log, now: time.Now}
	b.log.Infow("breaker_created", "name", name, "max_failures", cfg.MaxFailures, "reset_timeout", cfg.ResetTimeout)
	return b
}

// Execute runs op unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	if b.state == Open {
		since := b.now().Sub(b.openedAt)
		if since < b.cfg.ResetTimeout {
			b.mu.Unlock()
			b.log.Debugw("breaker_fast_fail", "name", b.name, "since_open", since)
			return ErrOpen
		}
		b.setState(HalfOpen)
		b.log.Infow("breaker_trial", "name", b.name, "previous_failures", b.recentFails)
	}
	b.mu.Unlock()

	err := op(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		if b.state != Closed {
			b.log.Infow("breaker_closed", "name", b.name, "from", b.state.String())
		}
		b.recentFails = 0
		b.setState(Closed)
		return nil
	}

	b.recentFails++
	b.log.Warnw("operation_failure", "name", b.name, "failures", b.recentFails, "err", err)
	if b.state == HalfOpen || b.recentFails >= b.cfg.MaxFailures {
		b.openedAt = b.now()
		b.setState(Open)
		b.log.Errorw("breaker_opened", "name", b.name, "max_failures", b.cfg.MaxFailures)
	}
	return err
}

// setState is called with mu held.
func (b *Breaker) setState(s BreakerState) {
	b.state = s
	metrics.SetBreakerState(int(s))
}

// State reports the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
