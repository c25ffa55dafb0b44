package device

import (
	"context"
	"errors"
	"time"

	"airmonitor/internal/logger"
	"airmonitor/internal/metrics"
)

// WatchdogStep is the name of the mandatory watchdog feed step.
const WatchdogStep = "watchdog"

// ErrNoWatchdogStep is returned when a step list does not feed the watchdog.
var ErrNoWatchdogStep = errors.New("scheduler: step list has no watchdog step")

// Step is one non-blocking unit of work in the main loop.
// Run must return quickly; anything slow belongs on a worker goroutine.
type Step struct {
	Name string
	Run  func(ctx context.Context)
}

// Scheduler runs a fixed, ordered list of steps.
type Scheduler struct {
	steps    []Step
	budget   time.Duration
	idle     time.Duration
	boundary func(ctx context.Context)
	log      *logger.Logger
	now      func() time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithStepBudget sets the duration after which a step is reported as slow.
func WithStepBudget(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.budget = d }
}

// WithIdle sets the pause between iterations.
func WithIdle(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.idle = d }
}

// WithBoundary sets a hook run before every iteration.
func WithBoundary(fn func(ctx context.Context)) SchedulerOption {
	return func(s *Scheduler) { s.boundary = fn }
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(l *logger.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = l }
}

// NewScheduler validates steps and returns a scheduler.
func NewScheduler(steps []Step, opts ...SchedulerOption) (*Scheduler, error) {
	hasWatchdog := false
	for _, st := range steps {
		if st.Run == nil {
			return nil, errors.New("scheduler: step " + st.Name + " has no Run func")
		}
		if st.Name == WatchdogStep {
			hasWatchdog = true
		}
	}
	if !hasWatchdog {
		return nil, ErrNoWatchdogStep
	}

	s := &Scheduler{
		steps:  append([]Step(nil), steps...),
		budget: 250 * time.Millisecond,
		idle:   10 * time.Millisecond,
		log:    logger.Nop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Steps returns the step names in execution order.
func (s *Scheduler) Steps() []string {
	names := make([]string, len(s.steps))
	for i, st := range s.steps {
		names[i] = st.Name
	}
	return names
}

// RunOnce executes every step in order.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, st := range s.steps {
		start := s.now()
		st.Run(ctx)
		took := s.now().Sub(start)

		overrun := s.budget > 0 && took > s.budget
		metrics.ObserveStep(st.Name, took, overrun)
		if overrun {
			s.log.Warnw("loop_step_slow", "step", st.Name, "took", took, "budget", s.budget)
		}
	}
	metrics.IncIteration()
}

// Run loops until ctx is canceled: boundary hook, all steps, then idle pause.
func (s *Scheduler) Run(ctx context.Context) {
	var pause *time.Timer
	if s.idle > 0 {
		pause = time.NewTimer(s.idle)
		defer pause.Stop()
	}
	for {
		if ctx.Err() != nil {
			return
		}
		if s.boundary != nil {
			s.boundary(ctx)
		}
		s.RunOnce(ctx)

		if pause == nil {
			continue
		}
		pause.Reset(s.idle)
		select {
		case <-ctx.Done():
			return
		case <-pause.C:
		}
	}
}
