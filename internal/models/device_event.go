package models

import (
	"slices"
	"time"
)

// Event types written to the device event log.
const (
	EventStartup       = "STARTUP"
	EventPreference    = "PREFERENCE"
	EventSensorError   = "SENSOR_ERROR"
	EventWatchdogReset = "WATCHDOG_RESET"
	EventFirmware      = "FIRMWARE"
)

// EventTypes lists every type the device writes.
var EventTypes = []string{EventStartup, EventPreference, EventSensorError, EventWatchdogReset, EventFirmware}

// IsEventType reports whether typ is one of EventTypes.
func IsEventType(typ string) bool { return slices.Contains(EventTypes, typ) }

// DeviceEvent is a single log entry.
type DeviceEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // STARTUP | PREFERENCE | SENSOR_ERROR | WATCHDOG_RESET | FIRMWARE
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
