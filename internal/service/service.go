package service

import (
	"context"

	"airmonitor/internal/models"
	"airmonitor/internal/repository"
)

// Pairing issues and verifies config-server tokens.
type Pairing interface {
	Pair(pin, client string) (string, error)
	ParseToken(accessToken string) (string, error)
}

// Monitoring exposes read-only device state.
type Monitoring interface {
	GetState(ctx context.Context) (models.DeviceState, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.DeviceEvent, error)
}

// Preferences accepts user preference changes for the device to apply.
// Submit must not block; a full queue is reported as an error.
type Preferences interface {
	Submit(change models.PreferenceChange) error
}

// Service aggregates everything the config server needs.
type Service struct {
	Monitoring
	EventLog
	Pairing
	Preferences
}

// NewService wires the repository layer and live device components into the aggregate.
func NewService(repos *repository.Repository, monitoring Monitoring, pairing Pairing, prefs Preferences) *Service {
	return &Service{
		Monitoring:  monitoring,
		EventLog:    NewEventLogService(repos.Events),
		Pairing:     pairing,
		Preferences: prefs,
	}
}
