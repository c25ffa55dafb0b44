package models

// Screens shown by the display.
const (
	ScreenOff     = "off"
	ScreenWelcome = "welcome"
	ScreenMain    = "main"
)

// SensorPanel is the data block shown on the main screen.
type SensorPanel struct {
	MainValue   uint16  `json:"main_value"`
	BatteryPct  int     `json:"battery_pct"`
	Humidity    float64 `json:"humidity"`
	Temperature float64 `json:"temperature"`
	RSSI        int     `json:"rssi"`
	DeviceType  int     `json:"device_type"`
}

// StatusFlags are the icons in the display status bar.
type StatusFlags struct {
	WifiConnected         bool `json:"wifi_connected"`
	SensorsOK             bool `json:"sensors_ok"`
	ConfigClientConnected bool `json:"config_client_connected"`
}

// DisplaySnapshot is everything the display is currently rendering.
type DisplaySnapshot struct {
	Screen          string      `json:"screen"`
	WelcomeMessages []string    `json:"welcome_messages,omitempty"`
	Brightness      int         `json:"brightness"`
	WifiMode        bool        `json:"wifi_mode"`
	SampleTime      int         `json:"sample_time"`
	ColorsInverted  bool        `json:"colors_inverted"`
	Panel           SensorPanel `json:"panel"`
	Flags           StatusFlags `json:"flags"`
	Frame           uint64      `json:"frame"`
}
