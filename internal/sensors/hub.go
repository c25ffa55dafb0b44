package sensors

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"airmonitor/internal/logger"
	"airmonitor/internal/models"
)

// HubConfig configures the simulated hub.
type HubConfig struct {
	// Present is false to simulate a board with no sensor attached.
	Present bool
	Seed    int64
	// ErrorRate is the probability of a failed read per sample.
	ErrorRate float64
}

// SimulatedHub stands in for the sensor library on hosts without sensor hardware.
// Loop samples at most once per sample time and reports through the callbacks,
// on the caller's goroutine.
type SimulatedHub struct {
	cfg HubConfig
	log *logger.Logger
	now func() time.Time

	mu         sync.Mutex
	rng        *rand.Rand
	sampleTime int
	tempOffset float64
	i2cOnly    bool
	debug      bool
	configured bool
	deviceType int
	lastSample time.Time
	co2Base    float64

	pm25, co2            uint16
	humidity, temp       float64
	co2Humidity, co2Temp float64

	onData  func()
	onError func(msg string)
}

// NewSimulatedHub returns a hub that has not run detection yet.
func NewSimulatedHub(cfg HubConfig, log *logger.Logger) *SimulatedHub {
	if log == nil {
		log = logger.Nop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedHub{
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		rng:        rand.New(rand.NewSource(seed)),
		sampleTime: 1,
		co2Base:    600,
		deviceType: models.NoDeviceType,
	}
}

// Init runs detection for sensorType.
func (h *SimulatedHub) Init(sensorType int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.configured = false
	h.deviceType = models.NoDeviceType
	if !h.cfg.Present {
		h.log.Warnw("sensor_not_found", "sensor_type", TypeName(sensorType))
		return
	}
	selected := sensorType
	if selected < 0 || selected >= len(catalog) {
		h.log.Warnw("sensor_type_invalid", "sensor_type", sensorType)
		return
	}
	if h.i2cOnly && !isI2C(selected) {
		if selected != TypeAuto {
			h.log.Warnw("sensor_not_on_i2c", "sensor_type", TypeName(selected))
			return
		}
		selected = TypeSCD30
	}
	h.configured = true
	h.deviceType = selected
	h.lastSample = time.Time{}
	h.log.Infow("sensor_selected", "device", DeviceName(selected), "i2c_only", h.i2cOnly)
}

func (h *SimulatedHub) SetSampleTime(seconds int) {
	if seconds <= 0 {
		return
	}
	h.mu.Lock()
	h.sampleTime = seconds
	h.mu.Unlock()
}

func (h *SimulatedHub) SampleTime() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sampleTime
}

func (h *SimulatedHub) SetTempOffset(offset float64) {
	h.mu.Lock()
	h.tempOffset = offset
	h.mu.Unlock()
}

func (h *SimulatedHub) DetectI2COnly(only bool) {
	h.mu.Lock()
	h.i2cOnly = only
	h.mu.Unlock()
}

func (h *SimulatedHub) SetDebugMode(debug bool) {
	h.mu.Lock()
	h.debug = debug
	h.mu.Unlock()
}

func (h *SimulatedHub) OnData(fn func()) {
	h.mu.Lock()
	h.onData = fn
	h.mu.Unlock()
}

func (h *SimulatedHub) OnError(fn func(msg string)) {
	h.mu.Lock()
	h.onError = fn
	h.mu.Unlock()
}

// Loop takes a new sample when the sample time has elapsed.
func (h *SimulatedHub) Loop() {
	h.mu.Lock()
	if !h.configured {
		h.mu.Unlock()
		return
	}
	now := h.now()
	if !h.lastSample.IsZero() && now.Sub(h.lastSample) < time.Duration(h.sampleTime)*time.Second {
		h.mu.Unlock()
		return
	}
	h.lastSample = now

	if h.cfg.ErrorRate > 0 && h.rng.Float64() < h.cfg.ErrorRate {
		cb := h.onError
		h.mu.Unlock()
		if cb != nil {
			cb("sensor read timeout")
		}
		return
	}
	h.sample()
	if h.debug {
		h.log.Debugw("sensor_sample", "pm25", h.pm25, "co2", h.co2, "humidity", h.humidity, "temperature", h.temp)
	}
	cb := h.onData
	h.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// sample generates a new reading for the selected device. Callers hold mu.
func (h *SimulatedHub) sample() {
	envTemp := round1(18 + h.rng.Float64()*10 - h.tempOffset)
	envHumi := round1(30 + h.rng.Float64()*40)

	h.pm25, h.co2 = 0, 0
	h.humidity, h.temp, h.co2Humidity, h.co2Temp = 0, 0, 0, 0

	switch {
	case isPM(h.deviceType):
		h.pm25 = uint16(5 + h.rng.Intn(40))
		// only the generic and panasonic boards carry an environment sensor
		if h.deviceType == TypeAuto || h.deviceType == TypePanasonic {
			h.humidity, h.temp = envHumi, envTemp
		}
	default:
		h.co2 = uint16(math.Max(400, h.co2Base+h.rng.NormFloat64()*40))
		h.co2Temp = envTemp
		if h.deviceType == TypeSCD30 {
			h.co2Humidity = envHumi
		}
	}
}

func (h *SimulatedHub) PM25() uint16 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pm25
}

func (h *SimulatedHub) CO2() uint16 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.co2
}

func (h *SimulatedHub) Humidity() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.humidity
}

func (h *SimulatedHub) Temperature() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.temp
}

func (h *SimulatedHub) CO2Humidity() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.co2Humidity
}

func (h *SimulatedHub) CO2Temperature() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.co2Temp
}

// IsPMSensorConfigured reports whether detection selected a device.
func (h *SimulatedHub) IsPMSensorConfigured() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.configured
}

func (h *SimulatedHub) DeviceTypeSelected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deviceType
}

func (h *SimulatedHub) DeviceSelected() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return DeviceName(h.deviceType)
}

// Recalibrate moves the CO2 baseline to ppm. PM devices ignore it.
func (h *SimulatedHub) Recalibrate(ppm int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.configured || isPM(h.deviceType) {
		h.log.Warnw("recalibration_ignored", "device", DeviceName(h.deviceType))
		return
	}
	h.co2Base = float64(ppm)
	h.log.Infow("co2_recalibrated", "device", DeviceName(h.deviceType), "ppm", ppm)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
