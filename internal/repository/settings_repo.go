package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"airmonitor/internal/models"
)

type SettingsSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewSettingsSQLite(db *sql.DB) *SettingsSQLite {
	return &SettingsSQLite{db: db, now: time.Now}
}

// device_id is written on insert only; the upsert never touches it.
const (
	upsertSettingsSQL = `
		INSERT INTO device_settings (namespace, device_id, wifi_enabled, brightness, colors_inverted, sample_time,
			sensor_type, temp_offset, i2c_only, debug_mode, ssid, influx_enabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace) DO UPDATE SET
			wifi_enabled=excluded.wifi_enabled,
			brightness=excluded.brightness,
			colors_inverted=excluded.colors_inverted,
			sample_time=excluded.sample_time,
			sensor_type=excluded.sensor_type,
			temp_offset=excluded.temp_offset,
			i2c_only=excluded.i2c_only,
			debug_mode=excluded.debug_mode,
			ssid=excluded.ssid,
			influx_enabled=excluded.influx_enabled,
			updated_at=excluded.updated_at
	`

	selectSettingsSQL = `
		SELECT namespace, device_id, wifi_enabled, brightness, colors_inverted, sample_time,
			sensor_type, temp_offset, i2c_only, debug_mode, ssid, influx_enabled
		FROM device_settings WHERE namespace=?
	`
)

var errEmptyNamespace = errors.New("settings namespace is empty")

// Save inserts or updates the settings row for cfg.Namespace.
func (r *SettingsSQLite) Save(ctx context.Context, cfg models.DeviceConfiguration) error {
	if cfg.Namespace == "" {
		return errEmptyNamespace
	}
	if cfg.SampleTime <= 0 {
		return fmt.Errorf("save settings %q: sample_time must be > 0, got %d", cfg.Namespace, cfg.SampleTime)
	}

	_, err := r.db.ExecContext(ctx, upsertSettingsSQL,
		cfg.Namespace,
		cfg.DeviceID,
		cfg.WifiEnabled,
		cfg.Brightness,
		cfg.ColorsInverted,
		cfg.SampleTime,
		cfg.SensorType,
		cfg.TempOffset,
		cfg.I2COnly,
		cfg.DebugMode,
		cfg.SSID,
		cfg.InfluxEnabled,
		r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save settings %q: %w", cfg.Namespace, err)
	}
	return nil
}

// Load fetches the settings row for namespace.
func (r *SettingsSQLite) Load(ctx context.Context, namespace string) (models.DeviceConfiguration, error) {
	if namespace == "" {
		return models.DeviceConfiguration{}, errEmptyNamespace
	}
	row := r.db.QueryRowContext(ctx, selectSettingsSQL, namespace)

	var c models.DeviceConfiguration
	if err := row.Scan(
		&c.Namespace,
		&c.DeviceID,
		&c.WifiEnabled,
		&c.Brightness,
		&c.ColorsInverted,
		&c.SampleTime,
		&c.SensorType,
		&c.TempOffset,
		&c.I2COnly,
		&c.DebugMode,
		&c.SSID,
		&c.InfluxEnabled,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DeviceConfiguration{}, nil // first boot
		}
		return models.DeviceConfiguration{}, fmt.Errorf("load settings %q: %w", namespace, err)
	}
	return c, nil
}
