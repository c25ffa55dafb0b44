package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"airmonitor/internal/models"
)

// callLog records collaborator calls in the order they happen.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(call string) int {
	n := 0
	for _, c := range l.all() {
		if c == call {
			n++
		}
	}
	return n
}

func (l *callLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

// ---- Settings ----

type fakeSettings struct {
	log *callLog
	cfg models.DeviceConfiguration
}

func newFakeSettings(log *callLog) *fakeSettings {
	return &fakeSettings{log: log, cfg: models.DeviceConfiguration{
		DeviceID: "A4CF12F0E1B2", SampleTime: 5, Brightness: 30, WifiEnabled: true, SSID: "lab-net",
	}}
}

func (f *fakeSettings) Init(ctx context.Context, namespace string) { f.log.add("config.Init(%s)", namespace) }
func (f *fakeSettings) Reload(ctx context.Context)                 { f.log.add("config.Reload") }
func (f *fakeSettings) SetWifiEnabled(ctx context.Context, enable bool) {
	f.cfg.WifiEnabled = enable
	f.log.add("config.SetWifiEnabled(%t)", enable)
}
func (f *fakeSettings) SaveBrightness(ctx context.Context, value int) {
	f.cfg.Brightness = value
	f.log.add("config.SaveBrightness(%d)", value)
}
func (f *fakeSettings) SetColorsInverted(ctx context.Context, enable bool) {
	f.cfg.ColorsInverted = enable
	f.log.add("config.SetColorsInverted(%t)", enable)
}
func (f *fakeSettings) SaveSampleTime(ctx context.Context, seconds int) {
	f.cfg.SampleTime = seconds
	f.log.add("config.SaveSampleTime(%d)", seconds)
}
func (f *fakeSettings) WifiEnabled() bool    { return f.cfg.WifiEnabled }
func (f *fakeSettings) Brightness() int      { return f.cfg.Brightness }
func (f *fakeSettings) ColorsInverted() bool { return f.cfg.ColorsInverted }
func (f *fakeSettings) SampleTime() int      { return f.cfg.SampleTime }
func (f *fakeSettings) TempOffset() float64  { return f.cfg.TempOffset }
func (f *fakeSettings) I2COnly() bool        { return f.cfg.I2COnly }
func (f *fakeSettings) DebugMode() bool      { return f.cfg.DebugMode }
func (f *fakeSettings) SensorType() int      { return f.cfg.SensorType }
func (f *fakeSettings) DeviceID() string     { return f.cfg.DeviceID }
func (f *fakeSettings) SSID() string         { return f.cfg.SSID }
func (f *fakeSettings) InfluxEnabled() bool  { return f.cfg.InfluxEnabled }

// ---- SensorHub ----

type fakeHub struct {
	log        *callLog
	reading    models.SensorReading
	sampleTime int
	detect     bool
	name       string
	onData     func()
	onError    func(string)
}

func newFakeHub(log *callLog) *fakeHub {
	return &fakeHub{log: log, detect: true, name: "SENSIRION", sampleTime: 5}
}

func (h *fakeHub) Init(sensorType int) { h.log.add("sensors.Init(%d)", sensorType) }
func (h *fakeHub) SetSampleTime(seconds int) {
	h.sampleTime = seconds
	h.log.add("sensors.SetSampleTime(%d)", seconds)
}
func (h *fakeHub) SampleTime() int              { return h.sampleTime }
func (h *fakeHub) SetTempOffset(offset float64) { h.log.add("sensors.SetTempOffset(%g)", offset) }
func (h *fakeHub) DetectI2COnly(only bool)      { h.log.add("sensors.DetectI2COnly(%t)", only) }
func (h *fakeHub) SetDebugMode(debug bool)      { h.log.add("sensors.SetDebugMode(%t)", debug) }
func (h *fakeHub) Loop()                        { h.log.add("sensors.Loop") }
func (h *fakeHub) PM25() uint16                 { return h.reading.PM25 }
func (h *fakeHub) CO2() uint16                  { return h.reading.CO2 }
func (h *fakeHub) Humidity() float64            { return h.reading.Humidity }
func (h *fakeHub) Temperature() float64         { return h.reading.Temperature }
func (h *fakeHub) CO2Humidity() float64         { return h.reading.CO2Humidity }
func (h *fakeHub) CO2Temperature() float64      { return h.reading.CO2Temperature }
func (h *fakeHub) OnData(fn func())             { h.onData = fn }
func (h *fakeHub) OnError(fn func(msg string))  { h.onError = fn }
func (h *fakeHub) IsPMSensorConfigured() bool   { return h.detect }
func (h *fakeHub) DeviceTypeSelected() int      { return h.reading.DeviceType }
func (h *fakeHub) DeviceSelected() string {
	if !h.detect {
		return ""
	}
	return h.name
}
func (h *fakeHub) Recalibrate(ppm int) { h.log.add("sensors.Recalibrate(%d)", ppm) }

// ---- Display ----

type sensorData struct {
	mainValue   uint16
	battery     int
	humidity    float64
	temperature float64
	rssi        int
	deviceType  int
}

type fakeDisplay struct {
	log      *callLog
	welcome  []string
	data     []sensorData
	flags    [3]bool
	bright   int
	inverted bool
}

func (d *fakeDisplay) Init()                      { d.log.add("display.Init") }
func (d *fakeDisplay) SetBrightness(v int)        { d.bright = v }
func (d *fakeDisplay) SetWifiMode(bool)           {}
func (d *fakeDisplay) SetSampleTime(int)          {}
func (d *fakeDisplay) SetColorsInverted(v bool)   { d.inverted = v }
func (d *fakeDisplay) ShowWelcome()               { d.log.add("display.ShowWelcome") }
func (d *fakeDisplay) AddWelcomeMessage(s string) { d.welcome = append(d.welcome, s) }
func (d *fakeDisplay) ShowMain()                  { d.log.add("display.ShowMain") }
func (d *fakeDisplay) SetSensorData(mainValue uint16, batteryPct int, humidity, temperature float64, rssi, deviceType int) {
	d.data = append(d.data, sensorData{mainValue, batteryPct, humidity, temperature, rssi, deviceType})
}
func (d *fakeDisplay) SetStatusFlags(wifi, sensors, client bool) {
	d.flags = [3]bool{wifi, sensors, client}
}
func (d *fakeDisplay) Refresh() { d.log.add("display.Refresh") }

// ---- Connectivity ----

type fakeConn struct {
	log       *callLog
	wifiErr   error
	serverErr error
	cloudErr  error
	connected bool
	clients   bool
	published []models.Telemetry
}

func (c *fakeConn) InitWifi(ctx context.Context) error {
	c.log.add("conn.InitWifi")
	return c.wifiErr
}
func (c *fakeConn) LoopWifi() { c.log.add("conn.LoopWifi") }
func (c *fakeConn) StopWifi() {
	c.connected = false
	c.log.add("conn.StopWifi")
}
func (c *fakeConn) WifiConnected() bool { return c.connected }
func (c *fakeConn) RSSI() int           { return -61 }
func (c *fakeConn) InitConfigServer() error {
	c.log.add("conn.InitConfigServer")
	return c.serverErr
}
func (c *fakeConn) LoopConfigServer()           { c.log.add("conn.LoopConfigServer") }
func (c *fakeConn) ConfigServerConnected() bool { return c.clients }
func (c *fakeConn) RefreshConfigServer()        { c.log.add("conn.RefreshConfigServer") }
func (c *fakeConn) InitCloudPublish() error {
	c.log.add("conn.InitCloudPublish")
	return c.cloudErr
}
func (c *fakeConn) LoopCloudPublish(build func() (models.Telemetry, bool)) {
	if t, ok := build(); ok {
		c.published = append(c.published, t)
	}
	c.log.add("conn.LoopCloudPublish")
}
func (c *fakeConn) CheckFirmwareUpdate() { c.log.add("conn.CheckFirmwareUpdate") }

// ---- Battery / Watchdog / Events ----

type fakeBattery struct{ log *callLog }

func (b fakeBattery) Init()            { b.log.add("battery.Init") }
func (b fakeBattery) Loop()            { b.log.add("battery.Loop") }
func (b fakeBattery) ChargeLevel() int { return 87 }

type fakeWatchdog struct {
	log   *callLog
	feeds atomic.Int32
	armed bool
}

func (w *fakeWatchdog) Arm() {
	w.armed = true
	w.log.add("watchdog.Arm")
}
func (w *fakeWatchdog) Feed() {
	w.feeds.Add(1)
	w.log.add("watchdog.Feed")
}
func (w *fakeWatchdog) Timeout() time.Duration { return 60 * time.Second }

type fakeEvents struct {
	mu     sync.Mutex
	events []models.DeviceEvent
}

func (e *fakeEvents) Record(typ, description string, meta any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, models.DeviceEvent{Type: typ, Description: description, Metadata: meta})
}

func (e *fakeEvents) ofType(typ string) []models.DeviceEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []models.DeviceEvent
	for _, ev := range e.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// rig bundles a full set of fakes sharing one call log.
type rig struct {
	log      *callLog
	config   *fakeSettings
	hub      *fakeHub
	display  *fakeDisplay
	conn     *fakeConn
	watchdog *fakeWatchdog
	events   *fakeEvents
}

func newRig() *rig {
	l := &callLog{}
	return &rig{
		log:      l,
		config:   newFakeSettings(l),
		hub:      newFakeHub(l),
		display:  &fakeDisplay{log: l},
		conn:     &fakeConn{log: l},
		watchdog: &fakeWatchdog{log: l},
		events:   &fakeEvents{},
	}
}

func (r *rig) components() Components {
	return Components{
		Config:       r.config,
		Sensors:      r.hub,
		Display:      r.display,
		Connectivity: r.conn,
		Battery:      fakeBattery{log: r.log},
		Watchdog:     r.watchdog,
		Events:       r.events,
	}
}

var errRadio = errors.New("radio unavailable")
