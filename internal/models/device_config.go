package models

// DeviceConfiguration is the persisted device settings row.
// DeviceID is derived from the hardware identity on first boot and never changes afterwards.
type DeviceConfiguration struct {
	Namespace      string  `json:"namespace"`
	DeviceID       string  `json:"device_id"`
	WifiEnabled    bool    `json:"wifi_enabled"`
	Brightness     int     `json:"brightness"`
	ColorsInverted bool    `json:"colors_inverted"`
	SampleTime     int     `json:"sample_time"` // seconds, always > 0
	SensorType     int     `json:"sensor_type"`
	TempOffset     float64 `json:"temp_offset"`
	I2COnly        bool    `json:"i2c_only"`
	DebugMode      bool    `json:"debug_mode"`
	SSID           string  `json:"ssid"`
	InfluxEnabled  bool    `json:"influx_enabled"`
}

// MaxBrightness is the upper bound of the display backlight level.
const MaxBrightness = 100
