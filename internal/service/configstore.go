package service

import (
	"context"
	"sync"

	"airmonitor/internal/logger"
	"airmonitor/internal/models"
	"airmonitor/internal/repository"
)

// ConfigStore owns the device configuration. Every other component reads
// through its accessors or calls its mutators; nobody keeps a copy.
//
// Persistence is best-effort: failures are logged and the in-memory value
// stays authoritative until the next successful Reload.
type ConfigStore struct {
	repo     repository.SettingsRepo
	defaults models.DeviceConfiguration
	identity func() string
	log      *logger.Logger

	mu  sync.RWMutex
	cfg models.DeviceConfiguration
}

// NewConfigStore builds a store seeded with first-boot defaults.
// identity derives the immutable device id from the hardware.
func NewConfigStore(repo repository.SettingsRepo, defaults models.DeviceConfiguration, identity func() string, log *logger.Logger) *ConfigStore {
	if log == nil {
		log = logger.Nop()
	}
	if defaults.SampleTime <= 0 {
		defaults.SampleTime = defaultSampleTime
	}
	return &ConfigStore{
		repo:     repo,
		defaults: defaults,
		identity: identity,
		log:      log,
		cfg:      defaults,
	}
}

const defaultSampleTime = 5

// Init loads the settings stored under namespace, or falls back to defaults.
// On first boot the defaults are persisted together with the hardware-derived device id.
func (s *ConfigStore) Init(ctx context.Context, namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.repo.Load(ctx, namespace)
	switch {
	case err != nil:
		s.log.Warnw("settings_load_failed", "namespace", namespace, "err", err)
		s.cfg = s.firstBoot(namespace)
	case loaded.DeviceID == "":
		s.cfg = s.firstBoot(namespace)
		if err := s.repo.Save(ctx, s.cfg); err != nil {
			s.log.Warnw("settings_first_save_failed", "namespace", namespace, "err", err)
		}
		s.log.Infow("settings_initialized", "namespace", namespace, "device_id", s.cfg.DeviceID)
	default:
		if loaded.SampleTime <= 0 {
			loaded.SampleTime = s.defaults.SampleTime
		}
		s.cfg = loaded
		s.log.Infow("settings_loaded", "namespace", namespace, "device_id", s.cfg.DeviceID)
	}
}

func (s *ConfigStore) firstBoot(namespace string) models.DeviceConfiguration {
	cfg := s.defaults
	cfg.Namespace = namespace
	if s.identity != nil {
		cfg.DeviceID = s.identity()
	}
	return cfg
}

// Reload re-reads persisted settings. A failed or empty read keeps the cached values.
func (s *ConfigStore) Reload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.repo.Load(ctx, s.cfg.Namespace)
	if err != nil {
		s.log.Warnw("settings_reload_failed", "namespace", s.cfg.Namespace, "err", err)
		return
	}
	if loaded.DeviceID == "" || loaded.SampleTime <= 0 {
		return
	}
	// device id is fixed at first boot
	loaded.DeviceID = s.cfg.DeviceID
	s.cfg = loaded
}

// update applies mutate to the cached config and persists the result.
// The lock is held across the write so concurrent updates persist in order.
func (s *ConfigStore) update(ctx context.Context, field string, mutate func(c *models.DeviceConfiguration)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	mutate(&next)
	next.DeviceID = s.cfg.DeviceID
	s.cfg = next

	if err := s.repo.Save(ctx, next); err != nil {
		s.log.Warnw("settings_save_failed", "field", field, "err", err)
	}
}

func (s *ConfigStore) SetWifiEnabled(ctx context.Context, enable bool) {
	s.update(ctx, "wifi_enabled", func(c *models.DeviceConfiguration) { c.WifiEnabled = enable })
}

// SaveBrightness clamps value into [0, MaxBrightness].
func (s *ConfigStore) SaveBrightness(ctx context.Context, value int) {
	if value < 0 {
		value = 0
	}
	if value > models.MaxBrightness {
		value = models.MaxBrightness
	}
	s.update(ctx, "brightness", func(c *models.DeviceConfiguration) { c.Brightness = value })
}

func (s *ConfigStore) SetColorsInverted(ctx context.Context, enable bool) {
	s.update(ctx, "colors_inverted", func(c *models.DeviceConfiguration) { c.ColorsInverted = enable })
}

// SaveSampleTime ignores non-positive values; sample time is always > 0.
func (s *ConfigStore) SaveSampleTime(ctx context.Context, seconds int) {
	if seconds <= 0 {
		s.log.Warnw("settings_sample_time_rejected", "seconds", seconds)
		return
	}
	s.update(ctx, "sample_time", func(c *models.DeviceConfiguration) { c.SampleTime = seconds })
}

// Config returns a copy of the current configuration.
func (s *ConfigStore) Config() models.DeviceConfiguration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *ConfigStore) WifiEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.WifiEnabled
}

func (s *ConfigStore) Brightness() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Brightness
}

func (s *ConfigStore) ColorsInverted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.ColorsInverted
}

func (s *ConfigStore) SampleTime() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.SampleTime
}

func (s *ConfigStore) TempOffset() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.TempOffset
}

func (s *ConfigStore) I2COnly() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.I2COnly
}

func (s *ConfigStore) DebugMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.DebugMode
}

func (s *ConfigStore) SensorType() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.SensorType
}

func (s *ConfigStore) DeviceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.DeviceID
}

func (s *ConfigStore) SSID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.SSID
}

func (s *ConfigStore) InfluxEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.InfluxEnabled
}
