package repository

import (
	"context"
	"database/sql"
	"time"

	"airmonitor/internal/models"
)

// SettingsRepo persists one DeviceConfiguration row per namespace.
type SettingsRepo interface {
	Save(ctx context.Context, cfg models.DeviceConfiguration) error
	// Load returns a zero DeviceConfiguration (empty DeviceID) when the namespace has no row yet.
	Load(ctx context.Context, namespace string) (models.DeviceConfiguration, error)
}

// EventRepo is the append-only device event log.
type EventRepo interface {
	Append(ctx context.Context, e models.DeviceEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.DeviceEvent, error)
}

type Repository struct {
	Settings SettingsRepo
	Events   EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Settings: NewSettingsSQLite(db),
		Events:   NewEventSQLite(db),
	}
}
