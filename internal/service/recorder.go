package service

import (
	"context"
	"sync/atomic"
	"time"

	"airmonitor/internal/logger"
	"airmonitor/internal/models"
	"airmonitor/internal/repository"

	"github.com/google/uuid"
)

// EventRecorder queues device events and writes them from its own goroutine,
// so callers on the main loop never wait on the database.
type EventRecorder struct {
	repo    repository.EventRepo
	queue   chan models.DeviceEvent
	log     *logger.Logger
	dropped atomic.Uint64
	now     func() time.Time
}

// NewEventRecorder returns a recorder with a bounded queue of the given size.
func NewEventRecorder(repo repository.EventRepo, size int, log *logger.Logger) *EventRecorder {
	if size <= 0 {
		size = 32
	}
	if log == nil {
		log = logger.Nop()
	}
	return &EventRecorder{
		repo:  repo,
		queue: make(chan models.DeviceEvent, size),
		log:   log,
		now:   time.Now,
	}
}

// Record enqueues an event. When the queue is full the event is dropped and counted.
func (r *EventRecorder) Record(typ, description string, meta any) {
	if r == nil {
		return
	}
	ev := models.DeviceEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  r.now().UTC(),
		Type:        typ,
		Description: description,
		Metadata:    meta,
	}
	select {
	case r.queue <- ev:
	default:
		r.dropped.Add(1)
		r.log.Warnw("event_dropped", "type", typ, "dropped_total", r.dropped.Load())
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (r *EventRecorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Run writes queued events until ctx is canceled, then flushes what is left.
func (r *EventRecorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return
		case ev := <-r.queue:
			r.write(ctx, ev)
		}
	}
}

func (r *EventRecorder) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case ev := <-r.queue:
			r.write(ctx, ev)
		default:
			return
		}
	}
}

func (r *EventRecorder) write(ctx context.Context, ev models.DeviceEvent) {
	if err := r.repo.Append(ctx, ev); err != nil {
		r.log.Warnw("event_append_failed", "type", ev.Type, "err", err)
	}
}
