package models

import "time"

// FirmwareInfo describes the running firmware and the last update check.
type FirmwareInfo struct {
	Version         string    `json:"version"`
	Flavor          string    `json:"flavor"`
	Target          string    `json:"target"`
	Revision        string    `json:"revision"`
	LatestVersion   string    `json:"latest_version,omitempty"`
	UpdateAvailable bool      `json:"update_available"`
	CheckedAt       time.Time `json:"checked_at,omitempty"`
}

// DeviceState is the read-only view served by the config server.
type DeviceState struct {
	Config   DeviceConfiguration `json:"config"`
	Display  DisplaySnapshot     `json:"display"`
	Firmware FirmwareInfo        `json:"firmware"`
	SensorOK bool                `json:"sensor_ok"`
	Uptime   string              `json:"uptime"`
	At       time.Time           `json:"at"`
}
