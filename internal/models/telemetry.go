package models

import "time"

// Telemetry is the payload published to the cloud time-series backend.
type Telemetry struct {
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	DeviceType  int       `json:"device_type"`
	MainValue   uint16    `json:"main_value"`
	PM25        uint16    `json:"pm25"`
	CO2         uint16    `json:"co2"`
	Humidity    float64   `json:"humidity,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Battery     int       `json:"battery"`
	RSSI        int       `json:"rssi,omitempty"`
}
