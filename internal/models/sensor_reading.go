package models

// LastPMDeviceType is the highest device type that denotes a particulate-matter sensor.
// Anything above it is a CO2 sensor variant.
const LastPMDeviceType = 3

// NoDeviceType is reported by the hub while no sensor has been detected.
const NoDeviceType = -1

// SensorReading is one poll of the sensor hub.
// Humidity and Temperature use 0.0 to mean "unavailable".
type SensorReading struct {
	DeviceType     int     `json:"device_type"`
	PM25           uint16  `json:"pm25"`
	CO2            uint16  `json:"co2"`
	Humidity       float64 `json:"humidity"`
	Temperature    float64 `json:"temperature"`
	CO2Humidity    float64 `json:"co2_humidity"`
	CO2Temperature float64 `json:"co2_temperature"`
}

// IsPM reports whether the reading comes from a particulate-matter device.
// NoDeviceType also counts as PM here, so an undetected sensor shows pm2.5
// (zero) as its main value. Check HasSensor before trusting the result.
func (r SensorReading) IsPM() bool {
	return r.DeviceType <= LastPMDeviceType
}

// HasSensor reports whether a sensor was detected for the reading.
func (r SensorReading) HasSensor() bool {
	return r.DeviceType != NoDeviceType
}
