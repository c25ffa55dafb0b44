package service

import (
	"context"
	"time"

	"airmonitor/internal/models"
)

// ConfigReader is the read side of the config store.
type ConfigReader interface {
	Config() models.DeviceConfiguration
}

// SnapshotSource reports what the display is currently showing.
type SnapshotSource interface {
	Snapshot() models.DisplaySnapshot
}

// FirmwareSource reports the running firmware and the last update check.
type FirmwareSource interface {
	Firmware() models.FirmwareInfo
}

type MonitoringService struct {
	config   ConfigReader
	display  SnapshotSource
	firmware FirmwareSource
	started  time.Time
	now      func() time.Time
}

// NewMonitoringService builds a read-only view over the live device components.
// firmware may be nil when update checks are disabled.
func NewMonitoringService(config ConfigReader, display SnapshotSource, firmware FirmwareSource) *MonitoringService {
	return &MonitoringService{
		config:   config,
		display:  display,
		firmware: firmware,
		started:  time.Now(),
		now:      time.Now,
	}
}

// GetState assembles the current device state. It never touches storage.
func (s *MonitoringService) GetState(ctx context.Context) (models.DeviceState, error) {
	if err := ctx.Err(); err != nil {
		return models.DeviceState{}, err
	}
	now := s.now()
	st := models.DeviceState{
		Config: s.config.Config(),
		Uptime: now.Sub(s.started).Truncate(time.Second).String(),
		At:     toUTC(now),
	}
	if s.display != nil {
		st.Display = s.display.Snapshot()
		st.SensorOK = st.Display.Flags.SensorsOK
	}
	if s.firmware != nil {
		st.Firmware = s.firmware.Firmware()
		st.Firmware.CheckedAt = toUTC(st.Firmware.CheckedAt)
	}
	return st, nil
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
