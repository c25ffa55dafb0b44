package device

import (
	"context"
	"fmt"
	"sync"

	"airmonitor/internal/logger"
	"airmonitor/internal/models"
)

// Phase is a startup state. Phases only move forward.
type Phase int

const (
	Uninitialized Phase = iota
	ConfigLoaded
	DisplayReady
	SensorsDetecting
	SensorsReady
	SensorsFailed
	PeripheralsInit
	Ready
)

var phaseNames = [...]string{
	Uninitialized:    "UNINITIALIZED",
	ConfigLoaded:     "CONFIG_LOADED",
	DisplayReady:     "DISPLAY_READY",
	SensorsDetecting: "SENSORS_DETECTING",
	SensorsReady:     "SENSORS_READY",
	SensorsFailed:    "SENSORS_FAILED",
	PeripheralsInit:  "PERIPHERALS_INIT",
	Ready:            "READY",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("PHASE(%d)", int(p))
	}
	return phaseNames[p]
}

// Firmware identifies the running build.
type Firmware struct {
	Version  string
	Flavor   string
	Target   string
	Revision string
}

// Components are the subsystems the sequencer brings up.
type Components struct {
	Config       Settings
	Sensors      SensorHub
	Display      Display
	Connectivity Connectivity
	Battery      Battery
	Watchdog     Watchdog
	Events       EventSink
}

// Sequencer brings the device from power-on to Ready.
type Sequencer struct {
	c         Components
	namespace string
	firmware  Firmware
	log       *logger.Logger

	// onData and onError are registered with the sensor hub during detection.
	onData  func()
	onError func(msg string)

	mu          sync.Mutex
	phase       Phase
	transitions []Phase
	detected    bool
	errs        []error
}

// NewSequencer returns a sequencer in the Uninitialized phase.
func NewSequencer(c Components, namespace string, fw Firmware, log *logger.Logger) *Sequencer {
	if c.Events == nil {
		c.Events = nopSink{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Sequencer{
		c:           c,
		namespace:   namespace,
		firmware:    fw,
		log:         log,
		phase:       Uninitialized,
		transitions: []Phase{Uninitialized},
	}
}

// SetSensorCallbacks sets the data and error callbacks registered during detection.
func (s *Sequencer) SetSensorCallbacks(onData func(), onError func(msg string)) {
	s.onData = onData
	s.onError = onError
}

// Phase reports the current phase.
func (s *Sequencer) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Transitions returns every phase entered so far, in order.
func (s *Sequencer) Transitions() []Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Phase(nil), s.transitions...)
}

// SensorDetected reports whether detection found a sensor.
func (s *Sequencer) SensorDetected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detected
}

// PeripheralErrors returns the init failures collected during PeripheralsInit.
func (s *Sequencer) PeripheralErrors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func (s *Sequencer) enter(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p <= s.phase {
		s.log.Errorw("startup_phase_out_of_order", "phase", p.String(), "current", s.phase.String())
		return
	}
	s.phase = p
	s.transitions = append(s.transitions, p)
	s.log.Infow("startup_phase", "phase", p.String())
}

// Start runs the whole sequence once. A sensor detection failure does not stop it.
func (s *Sequencer) Start(ctx context.Context) {
	cfg, disp, hub := s.c.Config, s.c.Display, s.c.Sensors

	cfg.Init(ctx, s.namespace)
	s.enter(ConfigLoaded)

	disp.SetBrightness(cfg.Brightness())
	disp.SetWifiMode(cfg.WifiEnabled())
	disp.SetSampleTime(cfg.SampleTime())
	disp.SetColorsInverted(cfg.ColorsInverted())
	disp.Init()
	disp.ShowWelcome()
	s.log.Infow("device_identity",
		"device_id", cfg.DeviceID(),
		"revision", s.firmware.Revision,
		"version", s.firmware.Version,
		"flavor", s.firmware.Flavor,
		"target", s.firmware.Target,
	)
	s.enter(DisplayReady)

	s.enter(SensorsDetecting)
	s.detectSensors()

	s.enter(PeripheralsInit)
	s.initPeripherals(ctx)

	s.welcomeSummary()
	disp.ShowMain()
	if s.onData != nil {
		s.onData()
	}
	disp.Refresh()
	hub.Loop()
	hub.SetSampleTime(cfg.SampleTime())

	s.enter(Ready)
	s.c.Events.Record(models.EventStartup, "startup complete", map[string]any{
		"sensor_detected":   s.SensorDetected(),
		"sensor":            hub.DeviceSelected(),
		"peripheral_errors": errStrings(s.PeripheralErrors()),
		"version":           s.firmware.Version,
	})
}

func (s *Sequencer) detectSensors() {
	cfg, disp, hub := s.c.Config, s.c.Display, s.c.Sensors

	s.log.Infow("sensor_configured", "sensor_type", cfg.SensorType())
	disp.AddWelcomeMessage("Detected sensor:")
	if s.onData != nil {
		hub.OnData(s.onData)
	}
	if s.onError != nil {
		hub.OnError(s.onError)
	}
	hub.SetSampleTime(1) // first reading as soon as possible
	hub.SetTempOffset(cfg.TempOffset())
	hub.DetectI2COnly(cfg.I2COnly())
	hub.SetDebugMode(cfg.DebugMode())
	hub.Init(cfg.SensorType())

	if hub.IsPMSensorConfigured() {
		s.mu.Lock()
		s.detected = true
		s.mu.Unlock()
		s.log.Infow("sensor_detected", "device", hub.DeviceSelected())
		disp.AddWelcomeMessage(hub.DeviceSelected())
		s.enter(SensorsReady)
		return
	}
	s.log.Warnw("sensor_detection_failed", "sensor_type", cfg.SensorType())
	disp.AddWelcomeMessage("Detection !FAILED!")
	s.enter(SensorsFailed)
}

// initPeripherals attempts every peripheral; one failing does not skip the rest.
func (s *Sequencer) initPeripherals(ctx context.Context) {
	cfg, disp, conn := s.c.Config, s.c.Display, s.c.Connectivity

	s.c.Battery.Init()
	s.c.Watchdog.Arm()

	if err := conn.InitWifi(ctx); err != nil {
		s.fail("wifi", err)
	}
	if err := conn.InitConfigServer(); err != nil {
		s.fail("config_server", err)
	} else {
		disp.AddWelcomeMessage("Config server ready.")
	}

	s.log.Infow("cloud_publish", "enabled", cfg.InfluxEnabled())
	disp.AddWelcomeMessage(fmt.Sprintf("Cloud: %t", cfg.InfluxEnabled()))
	if err := conn.InitCloudPublish(); err != nil {
		s.fail("cloud_publish", err)
	}
}

func (s *Sequencer) fail(peripheral string, err error) {
	s.log.Warnw("peripheral_init_failed", "peripheral", peripheral, "err", err)
	s.mu.Lock()
	s.errs = append(s.errs, fmt.Errorf("%s: %w", peripheral, err))
	s.mu.Unlock()
}

func (s *Sequencer) welcomeSummary() {
	cfg, disp := s.c.Config, s.c.Display

	if s.c.Connectivity.WifiConnected() {
		disp.AddWelcomeMessage("WiFi:" + cfg.SSID())
	} else {
		disp.AddWelcomeMessage("WiFi: disabled.")
	}
	disp.AddWelcomeMessage(fmt.Sprintf("stime: %d sec.", cfg.SampleTime()))
	disp.AddWelcomeMessage(cfg.DeviceID())
	disp.AddWelcomeMessage(fmt.Sprintf("Watchdog:%d", int(s.c.Watchdog.Timeout().Seconds())))
	disp.AddWelcomeMessage("==SETUP READY==")
}

func errStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}
