package device

import (
	"context"
	"errors"
	"fmt"

	"airmonitor/internal/logger"
	"airmonitor/internal/metrics"
	"airmonitor/internal/models"
)

// OutdoorCO2PPM is the reference concentration used for CO2 recalibration.
const OutdoorCO2PPM = 418

// ErrQueueFull is returned by Submit when pending changes exceed the queue size.
var ErrQueueFull = errors.New("preference queue full")

// PreferenceBridge applies preference changes coming from the config server.
//
// Submit may be called from any goroutine. Changes are applied only by Drain,
// which the scheduler runs between iterations, so no loop step ever observes
// a half-applied change.
type PreferenceBridge struct {
	config  Settings
	sensors SensorHub
	conn    Connectivity
	events  EventSink
	log     *logger.Logger

	queue chan models.PreferenceChange
}

// NewPreferenceBridge builds a bridge with a bounded queue of size pending changes.
func NewPreferenceBridge(config Settings, sensors SensorHub, conn Connectivity, size int, events EventSink, log *logger.Logger) *PreferenceBridge {
	if size <= 0 {
		size = 16
	}
	if events == nil {
		events = nopSink{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PreferenceBridge{
		config:  config,
		sensors: sensors,
		conn:    conn,
		events:  events,
		log:     log,
		queue:   make(chan models.PreferenceChange, size),
	}
}

// Submit queues change for the next iteration boundary. It never blocks.
func (b *PreferenceBridge) Submit(change models.PreferenceChange) error {
	if change == nil {
		metrics.IncPreferenceRejected("invalid")
		return models.ErrInvalidPreference
	}
	select {
	case b.queue <- change:
		return nil
	default:
		metrics.IncPreferenceRejected("queue_full")
		b.log.Warnw("preference_queue_full", "kind", change.Kind())
		return ErrQueueFull
	}
}

// Pending reports how many changes are waiting.
func (b *PreferenceBridge) Pending() int {
	return len(b.queue)
}

// Drain applies every change queued so far and returns how many were applied.
// Changes submitted while draining wait for the next call.
func (b *PreferenceBridge) Drain(ctx context.Context) int {
	n := len(b.queue)
	for i := 0; i < n; i++ {
		select {
		case change := <-b.queue:
			b.Apply(ctx, change)
		default:
			return i
		}
	}
	return n
}

// Apply runs the protocol for a single change.
func (b *PreferenceBridge) Apply(ctx context.Context, change models.PreferenceChange) {
	switch c := change.(type) {
	case models.WifiToggled:
		b.config.SetWifiEnabled(ctx, c.Enabled)
		b.config.Reload(ctx)
		if !c.Enabled {
			b.conn.StopWifi()
		}
		b.applied(c, fmt.Sprintf("wifi enabled=%t", c.Enabled), map[string]any{"enabled": c.Enabled})

	case models.BrightnessChanged:
		b.config.SaveBrightness(ctx, c.Value)
		b.applied(c, fmt.Sprintf("brightness=%d", c.Value), map[string]any{"value": c.Value})

	case models.ColorInversionToggled:
		b.config.SetColorsInverted(ctx, c.Enabled)
		b.applied(c, fmt.Sprintf("colors inverted=%t", c.Enabled), map[string]any{"enabled": c.Enabled})

	case models.SampleTimeChanged:
		if c.Seconds == b.sensors.SampleTime() {
			b.log.Debugw("preference_unchanged", "kind", c.Kind(), "seconds", c.Seconds)
			return
		}
		b.config.SaveSampleTime(ctx, c.Seconds)
		b.config.Reload(ctx)
		b.conn.RefreshConfigServer()
		b.sensors.SetSampleTime(b.config.SampleTime())
		b.applied(c, fmt.Sprintf("sample time=%ds", c.Seconds), map[string]any{"seconds": c.Seconds})

	case models.CalibrationRequested:
		b.sensors.Recalibrate(OutdoorCO2PPM)
		b.applied(c, "co2 recalibration", map[string]any{"ppm": OutdoorCO2PPM})

	default:
		metrics.IncPreferenceRejected("unknown_kind")
		b.log.Warnw("preference_unknown", "type", fmt.Sprintf("%T", change))
	}
}

func (b *PreferenceBridge) applied(c models.PreferenceChange, description string, meta map[string]any) {
	metrics.IncPreferenceApplied(c.Kind())
	b.log.Infow("preference_applied", "kind", c.Kind(), "detail", description)
	b.events.Record(models.EventPreference, description, meta)
}
