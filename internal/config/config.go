package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds process configuration. Device preferences live in the settings
// store; the Defaults block only seeds it on first boot.
type Config struct {
	Device    DeviceConfig
	DB        DBConfig
	Server    ServerConfig
	Watchdog  WatchdogConfig
	Scheduler SchedulerConfig
	Defaults  DefaultsConfig
	Sensors   SensorsConfig
	Wifi      WifiConfig
	Cloud     CloudConfig
	Firmware  FirmwareConfig
	Display   DisplayConfig
}

// DeviceConfig identifies the device and its settings namespace.
type DeviceConfig struct {
	Namespace  string `mapstructure:"namespace"`
	HardwareID string `mapstructure:"hardware_id"`
	LogLevel   string `mapstructure:"log_level"`
}

// DBConfig holds sqlite settings.
type DBConfig struct {
	Path string
}

// ServerConfig configures the config server.
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Secret         string        `mapstructure:"secret"`
	PIN            string        `mapstructure:"pin"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	QueueSize      int           `mapstructure:"queue_size"`
}

// WatchdogConfig holds the fixed watchdog timeout.
type WatchdogConfig struct {
	Timeout time.Duration
}

// SchedulerConfig tunes the main loop.
type SchedulerConfig struct {
	StepBudget time.Duration `mapstructure:"step_budget"`
	Idle       time.Duration `mapstructure:"idle"`
}

// DefaultsConfig seeds the device configuration on first boot.
type DefaultsConfig struct {
	WifiEnabled    bool    `mapstructure:"wifi_enabled"`
	Brightness     int     `mapstructure:"brightness"`
	ColorsInverted bool    `mapstructure:"colors_inverted"`
	SampleTime     int     `mapstructure:"sample_time"`
	SensorType     string  `mapstructure:"sensor_type"`
	TempOffset     float64 `mapstructure:"temp_offset"`
	I2COnly        bool    `mapstructure:"i2c_only"`
	DebugMode      bool    `mapstructure:"debug_mode"`
	SSID           string  `mapstructure:"ssid"`
	InfluxEnabled  bool    `mapstructure:"influx_enabled"`
}

// SensorsConfig drives the simulated sensor hub.
type SensorsConfig struct {
	Present   bool
	Seed      int64
	ErrorRate float64 `mapstructure:"error_rate"`
}

// WifiConfig configures uplink checks.
type WifiConfig struct {
	ProbeAddr     string        `mapstructure:"probe_addr"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
}

// CloudConfig configures time-series publication.
type CloudConfig struct {
	Backend        string        `mapstructure:"backend"`
	Brokers        []string      `mapstructure:"brokers"`
	Topic          string        `mapstructure:"topic"`
	Timeout        time.Duration `mapstructure:"timeout"`
	QueueSize      int           `mapstructure:"queue_size"`
	BreakerFails   int           `mapstructure:"breaker_max_failures"`
	BreakerTimeout time.Duration `mapstructure:"breaker_reset_timeout"`
}

// FirmwareConfig configures the update check.
type FirmwareConfig struct {
	ManifestURL   string        `mapstructure:"manifest_url"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// DisplayConfig selects the display renderer.
type DisplayConfig struct {
	Mode    string `mapstructure:"mode"`
	LogFile string `mapstructure:"log_file"`
}

// Display modes.
const (
	DisplayLog = "log"
	DisplayTUI = "tui"
)

// setDefaults registers defaults for every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("device.namespace", "canairio")
	v.SetDefault("device.hardware_id", "")
	v.SetDefault("device.log_level", "info")

	v.SetDefault("db.path", "airmonitor.db")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.secret", "")
	v.SetDefault("server.pin", "0000")
	v.SetDefault("server.token_ttl", time.Hour)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.queue_size", 16)

	v.SetDefault("watchdog.timeout", 60*time.Second)

	v.SetDefault("scheduler.step_budget", 250*time.Millisecond)
	v.SetDefault("scheduler.idle", 10*time.Millisecond)

	v.SetDefault("defaults.wifi_enabled", false)
	v.SetDefault("defaults.brightness", 30)
	v.SetDefault("defaults.colors_inverted", false)
	v.SetDefault("defaults.sample_time", 5)
	v.SetDefault("defaults.sensor_type", "auto")
	v.SetDefault("defaults.temp_offset", 0.0)
	v.SetDefault("defaults.i2c_only", false)
	v.SetDefault("defaults.debug_mode", false)
	v.SetDefault("defaults.ssid", "")
	v.SetDefault("defaults.influx_enabled", false)

	v.SetDefault("sensors.present", true)
	v.SetDefault("sensors.seed", 0)
	v.SetDefault("sensors.error_rate", 0.0)

	v.SetDefault("wifi.probe_addr", "1.1.1.1:53")
	v.SetDefault("wifi.retry_interval", 10*time.Second)
	v.SetDefault("wifi.dial_timeout", 3*time.Second)

	v.SetDefault("cloud.backend", "mqtt")
	v.SetDefault("cloud.brokers", []string{"tcp://localhost:1883"})
	v.SetDefault("cloud.topic", "airmonitor/telemetry")
	v.SetDefault("cloud.timeout", 5*time.Second)
	v.SetDefault("cloud.queue_size", 8)
	v.SetDefault("cloud.breaker_max_failures", 5)
	v.SetDefault("cloud.breaker_reset_timeout", 30*time.Second)

	v.SetDefault("firmware.manifest_url", "")
	v.SetDefault("firmware.check_interval", time.Hour)
	v.SetDefault("firmware.timeout", 10*time.Second)

	v.SetDefault("display.mode", DisplayLog)
	v.SetDefault("display.log_file", "airmonitor.log")
}

// Load reads configs/config.yml (or the file named by AIRMONITOR_CONFIG) and env.
// Env var overrides use prefix AIRMONITOR_, e.g. AIRMONITOR_SERVER_PORT.
// A missing config file is not an error: defaults apply.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("AIRMONITOR_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("AIRMONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.Watchdog.Timeout <= 0 {
		return fmt.Errorf("watchdog.timeout must be > 0, got %s", c.Watchdog.Timeout)
	}
	if c.Defaults.SampleTime <= 0 {
		return fmt.Errorf("defaults.sample_time must be > 0, got %d", c.Defaults.SampleTime)
	}
	if c.Sensors.ErrorRate < 0 || c.Sensors.ErrorRate > 1 {
		return fmt.Errorf("sensors.error_rate must be in [0,1], got %g", c.Sensors.ErrorRate)
	}
	if c.Device.Namespace == "" {
		return fmt.Errorf("device.namespace must not be empty")
	}
	switch c.Display.Mode {
	case DisplayLog, DisplayTUI:
	default:
		return fmt.Errorf("display.mode must be %q or %q, got %q", DisplayLog, DisplayTUI, c.Display.Mode)
	}
	return nil
}
