package device

import "airmonitor/internal/models"

// Resolved is what the display shows for one reading.
type Resolved struct {
	MainValue   uint16
	Humidity    float64
	Temperature float64
}

// Resolve picks the values to surface for reading.
//
// Particulate devices (type 0..3) report pm2.5 as the main value, CO2 devices report CO2.
// A humidity or temperature of exactly 0.0 means "not measured" and falls back to
// the value derived by the CO2 sensor. A genuine 0.0 reading cannot be told apart
// from a missing one.
func Resolve(r models.SensorReading) Resolved {
	out := Resolved{
		MainValue:   r.CO2,
		Humidity:    r.Humidity,
		Temperature: r.Temperature,
	}
	if r.IsPM() {
		out.MainValue = r.PM25
	}
	if out.Humidity == 0.0 {
		out.Humidity = r.CO2Humidity
	}
	if out.Temperature == 0.0 {
		out.Temperature = r.CO2Temperature
	}
	return out
}

// readingFrom collects the latest values from the hub.
func readingFrom(h SensorHub) models.SensorReading {
	return models.SensorReading{
		DeviceType:     h.DeviceTypeSelected(),
		PM25:           h.PM25(),
		CO2:            h.CO2(),
		Humidity:       h.Humidity(),
		Temperature:    h.Temperature(),
		CO2Humidity:    h.CO2Humidity(),
		CO2Temperature: h.CO2Temperature(),
	}
}
