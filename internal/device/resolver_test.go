package device

import (
	"testing"

	"airmonitor/internal/models"
)

func TestResolve_MainValueByDeviceType(t *testing.T) {
	for deviceType := 0; deviceType <= 8; deviceType++ {
		r := models.SensorReading{DeviceType: deviceType, PM25: 12, CO2: 650}
		got := Resolve(r).MainValue
		want := uint16(650)
		if deviceType <= models.LastPMDeviceType {
			want = 12
		}
		if got != want {
			t.Fatalf("device type %d: main value %d, want %d", deviceType, got, want)
		}
	}
}

func TestResolve_Scenarios(t *testing.T) {
	cases := []struct {
		name    string
		reading models.SensorReading
		want    Resolved
	}{
		{
			name: "pm device falls back to co2 humidity",
			reading: models.SensorReading{
				DeviceType: 2, PM25: 35, CO2: 900, Humidity: 0.0, CO2Humidity: 48.2,
			},
			want: Resolved{MainValue: 35, Humidity: 48.2},
		},
		{
			name:    "co2 device reports co2",
			reading: models.SensorReading{DeviceType: 5, PM25: 12, CO2: 650},
			want:    Resolved{MainValue: 650},
		},
		{
			name: "primary values win when present",
			reading: models.SensorReading{
				DeviceType: 1, PM25: 8, Humidity: 40.5, Temperature: 21.3, CO2Humidity: 55, CO2Temperature: 25,
			},
			want: Resolved{MainValue: 8, Humidity: 40.5, Temperature: 21.3},
		},
		{
			name: "temperature falls back independently of humidity",
			reading: models.SensorReading{
				DeviceType: 4, CO2: 1200, Humidity: 33, Temperature: 0.0, CO2Temperature: 24.7,
			},
			want: Resolved{MainValue: 1200, Humidity: 33, Temperature: 24.7},
		},
		{
			name:    "both sources missing stays zero",
			reading: models.SensorReading{DeviceType: 0, PM25: 3},
			want:    Resolved{MainValue: 3},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.reading); got != tc.want {
				t.Fatalf("Resolve() = %+v, want %+v", got, tc.want)
			}
		})
	}
}
