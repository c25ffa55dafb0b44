// Package display holds what the device shows and hands frames to a renderer.
package display

import (
	"sync"

	"airmonitor/internal/models"
)

// Renderer draws a frame. Render must not block.
type Renderer interface {
	Render(s models.DisplaySnapshot)
}

// Panel is the display state. Setters only mark it dirty; Refresh pushes a
// frame to the renderer when something changed.
type Panel struct {
	renderer Renderer

	mu    sync.Mutex
	snap  models.DisplaySnapshot
	dirty bool
}

// NewPanel returns a panel that renders through r. r may be nil.
func NewPanel(r Renderer) *Panel {
	return &Panel{renderer: r, snap: models.DisplaySnapshot{Screen: models.ScreenOff}}
}

// set applies mutate and marks the panel dirty when the snapshot changed.
func (p *Panel) set(mutate func(s *models.DisplaySnapshot) bool) {
	p.mu.Lock()
	if mutate(&p.snap) {
		p.dirty = true
	}
	p.mu.Unlock()
}

func (p *Panel) Init() {
	p.set(func(s *models.DisplaySnapshot) bool {
		s.WelcomeMessages = nil
		s.Screen = models.ScreenOff
		return true
	})
}

func (p *Panel) SetBrightness(value int) {
	p.set(func(s *models.DisplaySnapshot) bool {
		changed := s.Brightness != value
		s.Brightness = value
		return changed
	})
}

func (p *Panel) SetWifiMode(enabled bool) {
	p.set(func(s *models.DisplaySnapshot) bool {
		changed := s.WifiMode != enabled
		s.WifiMode = enabled
		return changed
	})
}

func (p *Panel) SetSampleTime(seconds int) {
	p.set(func(s *models.DisplaySnapshot) bool {
		changed := s.SampleTime != seconds
		s.SampleTime = seconds
		return changed
	})
}

func (p *Panel) SetColorsInverted(inverted bool) {
	p.set(func(s *models.DisplaySnapshot) bool {
		changed := s.ColorsInverted != inverted
		s.ColorsInverted = inverted
		return changed
	})
}

func (p *Panel) ShowWelcome() {
	p.set(func(s *models.DisplaySnapshot) bool {
		s.Screen = models.ScreenWelcome
		return true
	})
}

func (p *Panel) AddWelcomeMessage(text string) {
	p.set(func(s *models.DisplaySnapshot) bool {
		s.WelcomeMessages = append(s.WelcomeMessages, text)
		return true
	})
}

func (p *Panel) ShowMain() {
	p.set(func(s *models.DisplaySnapshot) bool {
		changed := s.Screen != models.ScreenMain
		s.Screen = models.ScreenMain
		return changed
	})
}

func (p *Panel) SetSensorData(mainValue uint16, batteryPct int, humidity, temperature float64, rssi, deviceType int) {
	panel := models.SensorPanel{
		MainValue:   mainValue,
		BatteryPct:  batteryPct,
		Humidity:    humidity,
		Temperature: temperature,
		RSSI:        rssi,
		DeviceType:  deviceType,
	}
	p.set(func(s *models.DisplaySnapshot) bool {
		changed := s.Panel != panel
		s.Panel = panel
		return changed
	})
}

func (p *Panel) SetStatusFlags(wifiConnected, sensorsOK, configClientConnected bool) {
	flags := models.StatusFlags{
		WifiConnected:         wifiConnected,
		SensorsOK:             sensorsOK,
		ConfigClientConnected: configClientConnected,
	}
	p.set(func(s *models.DisplaySnapshot) bool {
		changed := s.Flags != flags
		s.Flags = flags
		return changed
	})
}

// Refresh renders a new frame if anything changed since the last one.
func (p *Panel) Refresh() {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return
	}
	p.dirty = false
	p.snap.Frame++
	frame := copySnapshot(p.snap)
	p.mu.Unlock()

	if p.renderer != nil {
		p.renderer.Render(frame)
	}
}

// Snapshot returns the current display state.
func (p *Panel) Snapshot() models.DisplaySnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copySnapshot(p.snap)
}

func copySnapshot(s models.DisplaySnapshot) models.DisplaySnapshot {
	s.WelcomeMessages = append([]string(nil), s.WelcomeMessages...)
	return s
}
