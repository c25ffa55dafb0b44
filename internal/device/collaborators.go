// Package device coordinates the monitor: it runs the startup sequence,
// drives the main loop and propagates preference changes to the subsystems.
//
// Subsystems are consumed through the narrow interfaces below so that the
// coordination logic can run against fakes.
package device

import (
	"context"
	"time"

	"airmonitor/internal/models"
)

// Settings is the ConfigStore contract.
type Settings interface {
	Init(ctx context.Context, namespace string)
	Reload(ctx context.Context)

	SetWifiEnabled(ctx context.Context, enable bool)
	SaveBrightness(ctx context.Context, value int)
	SetColorsInverted(ctx context.Context, enable bool)
	SaveSampleTime(ctx context.Context, seconds int)

	WifiEnabled() bool
	Brightness() int
	ColorsInverted() bool
	SampleTime() int
	TempOffset() float64
	I2COnly() bool
	DebugMode() bool
	SensorType() int
	DeviceID() string
	SSID() string
	InfluxEnabled() bool
}

// SensorHub abstracts the physical sensors.
type SensorHub interface {
	Init(sensorType int)
	SetSampleTime(seconds int)
	SampleTime() int
	SetTempOffset(offset float64)
	DetectI2COnly(only bool)
	SetDebugMode(debug bool)
	Loop()

	PM25() uint16
	CO2() uint16
	Humidity() float64
	Temperature() float64
	CO2Humidity() float64
	CO2Temperature() float64

	OnData(fn func())
	OnError(fn func(msg string))

	IsPMSensorConfigured() bool
	DeviceTypeSelected() int
	DeviceSelected() string
	Recalibrate(ppm int)
}

// Display is the rendering engine contract.
type Display interface {
	Init()
	SetBrightness(value int)
	SetWifiMode(enabled bool)
	SetSampleTime(seconds int)
	SetColorsInverted(inverted bool)
	ShowWelcome()
	AddWelcomeMessage(text string)
	ShowMain()
	SetSensorData(mainValue uint16, batteryPct int, humidity, temperature float64, rssi, deviceType int)
	SetStatusFlags(wifiConnected, sensorsOK, configClientConnected bool)
	Refresh()
}

// Connectivity groups the radio-backed services.
type Connectivity interface {
	InitWifi(ctx context.Context) error
	LoopWifi()
	StopWifi()
	WifiConnected() bool
	RSSI() int

	InitConfigServer() error
	LoopConfigServer()
	ConfigServerConnected() bool
	RefreshConfigServer()

	InitCloudPublish() error
	// LoopCloudPublish calls build only when a publish is due; build
	// returning false skips that publish.
	LoopCloudPublish(build func() (models.Telemetry, bool))

	CheckFirmwareUpdate()
}

// Battery reports the charge level.
type Battery interface {
	Init()
	Loop()
	ChargeLevel() int
}

// Watchdog is the supervisor contract used by the loop.
type Watchdog interface {
	Arm()
	Feed()
	Timeout() time.Duration
}

// EventSink records device events without blocking.
type EventSink interface {
	Record(typ, description string, meta any)
}

type nopSink struct{}

func (nopSink) Record(string, string, any) {}
