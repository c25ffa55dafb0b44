package device

import (
	"context"
	"sync/atomic"
	"time"

	"airmonitor/internal/logger"
	"airmonitor/internal/metrics"
	"airmonitor/internal/models"
)

// Options tunes the device runtime.
type Options struct {
	Namespace  string
	Firmware   Firmware
	QueueSize  int
	StepBudget time.Duration
	Idle       time.Duration
}

// Device owns the coordination of all subsystems.
type Device struct {
	c      Components
	log    *logger.Logger
	bridge *PreferenceBridge
	seq    *Sequencer
	sched  *Scheduler

	sensorsOK atomic.Bool
	now       func() time.Time
}

// New wires the bridge, sequencer and scheduler around c.
func New(c Components, opts Options, log *logger.Logger) (*Device, error) {
	if log == nil {
		log = logger.Nop()
	}
	if c.Events == nil {
		c.Events = nopSink{}
	}
	d := &Device{
		c:   c,
		log: log,
		now: time.Now,
	}
	d.bridge = NewPreferenceBridge(c.Config, c.Sensors, c.Connectivity, opts.QueueSize, c.Events, log.Named("preferences"))
	d.seq = NewSequencer(c, opts.Namespace, opts.Firmware, log.Named("startup"))
	d.seq.SetSensorCallbacks(d.onSensorData, d.onSensorError)

	sched, err := NewScheduler(d.steps(),
		WithStepBudget(opts.StepBudget),
		WithIdle(opts.Idle),
		WithBoundary(func(ctx context.Context) { d.bridge.Drain(ctx) }),
		WithSchedulerLogger(log.Named("loop")),
	)
	if err != nil {
		return nil, err
	}
	d.sched = sched
	return d, nil
}

// Preferences returns the bridge the config server submits changes to.
func (d *Device) Preferences() *PreferenceBridge { return d.bridge }

// Sequencer returns the startup sequencer.
func (d *Device) Sequencer() *Sequencer { return d.seq }

// Scheduler returns the main loop scheduler.
func (d *Device) Scheduler() *Scheduler { return d.sched }

// Boot runs the startup sequence.
func (d *Device) Boot(ctx context.Context) {
	d.seq.Start(ctx)
	d.sensorsOK.Store(d.seq.SensorDetected())
}

// Run drives the main loop until ctx is canceled. Boot must have completed.
func (d *Device) Run(ctx context.Context) {
	d.log.Infow("loop_started", "steps", d.sched.Steps())
	d.sched.Run(ctx)
	d.log.Infow("loop_stopped")
}

// steps is the fixed per-iteration order.
func (d *Device) steps() []Step {
	c := d.c
	return []Step{
		{Name: "sensors", Run: func(context.Context) { c.Sensors.Loop() }},
		{Name: "battery", Run: func(context.Context) { c.Battery.Loop() }},
		{Name: "config_server", Run: func(context.Context) { c.Connectivity.LoopConfigServer() }},
		{Name: "wifi", Run: func(context.Context) { c.Connectivity.LoopWifi() }},
		{Name: "cloud_publish", Run: func(context.Context) { c.Connectivity.LoopCloudPublish(d.telemetry) }},
		{Name: "firmware", Run: func(context.Context) { c.Connectivity.CheckFirmwareUpdate() }},
		{Name: WatchdogStep, Run: func(context.Context) {
			c.Watchdog.Feed()
			metrics.SetWatchdogFed(d.now())
		}},
		{Name: "display", Run: func(context.Context) { d.updateDisplay() }},
	}
}

func (d *Device) onSensorData() {
	d.sensorsOK.Store(true)
	d.refreshSensorData()
}

func (d *Device) onSensorError(msg string) {
	metrics.IncSensorError()
	d.log.Warnw("sensor_data_error", "msg", msg)
	if d.sensorsOK.Swap(false) {
		d.c.Events.Record(models.EventSensorError, msg, map[string]any{"sensor": d.c.Sensors.DeviceSelected()})
	}
}

// refreshSensorData pushes the resolved reading to the display.
func (d *Device) refreshSensorData() {
	reading := readingFrom(d.c.Sensors)
	r := Resolve(reading)
	d.c.Display.SetSensorData(
		r.MainValue,
		d.c.Battery.ChargeLevel(),
		r.Humidity,
		r.Temperature,
		d.c.Connectivity.RSSI(),
		reading.DeviceType,
	)
}

// updateDisplay syncs display settings with the config store and refreshes the status bar.
func (d *Device) updateDisplay() {
	cfg, disp := d.c.Config, d.c.Display
	disp.SetBrightness(cfg.Brightness())
	disp.SetColorsInverted(cfg.ColorsInverted())
	disp.SetWifiMode(cfg.WifiEnabled())
	disp.SetSampleTime(cfg.SampleTime())
	disp.SetStatusFlags(d.c.Connectivity.WifiConnected(), d.sensorsOK.Load(), d.c.Connectivity.ConfigServerConnected())
	disp.Refresh()
}

// telemetry snapshots the current reading for the cloud. It reports false
// while no sensor is detected, so placeholder values are never published.
func (d *Device) telemetry() (models.Telemetry, bool) {
	reading := readingFrom(d.c.Sensors)
	if !reading.HasSensor() {
		return models.Telemetry{}, false
	}
	r := Resolve(reading)
	return models.Telemetry{
		DeviceID:    d.c.Config.DeviceID(),
		Timestamp:   d.now().UTC(),
		DeviceType:  reading.DeviceType,
		MainValue:   r.MainValue,
		PM25:        reading.PM25,
		CO2:         reading.CO2,
		Humidity:    r.Humidity,
		Temperature: r.Temperature,
		Battery:     d.c.Battery.ChargeLevel(),
		RSSI:        d.c.Connectivity.RSSI(),
	}, true
}
