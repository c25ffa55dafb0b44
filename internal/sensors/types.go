package sensors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Sensor type selectors. Values up to TypeSDS011 are particulate-matter devices,
// everything above is a CO2 device.
const (
	TypeAuto = iota
	TypePanasonic
	TypeSensirion
	TypeSDS011
	TypeMHZ19
	TypeCM1106
	TypeSenseAirS8
	TypeSCD30
)

// ErrUnknownSensorType is returned by ParseType for names outside the catalog.
var ErrUnknownSensorType = errors.New("unknown sensor type")

type sensorSpec struct {
	name   string // config name
	device string // name shown on the welcome screen
	i2c    bool
}

var catalog = []sensorSpec{
	TypeAuto:       {name: "auto", device: "GENERIC"},
	TypePanasonic:  {name: "panasonic", device: "PANASONIC"},
	TypeSensirion:  {name: "sensirion", device: "SENSIRION", i2c: true},
	TypeSDS011:     {name: "sds011", device: "SDS011"},
	TypeMHZ19:      {name: "mhz19", device: "MHZ19"},
	TypeCM1106:     {name: "cm1106", device: "CM1106"},
	TypeSenseAirS8: {name: "senseair_s8", device: "SENSEAIRS8"},
	TypeSCD30:      {name: "scd30", device: "SCD30", i2c: true},
}

// ParseType resolves a configured sensor name (or its number) to a type selector.
func ParseType(name string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if n, err := strconv.Atoi(key); err == nil {
		if n < 0 || n >= len(catalog) {
			return 0, fmt.Errorf("%w: %d", ErrUnknownSensorType, n)
		}
		return n, nil
	}
	for t, spec := range catalog {
		if spec.name == key {
			return t, nil
		}
	}
	if s := suggest(key); s != "" {
		return 0, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownSensorType, name, s)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSensorType, name)
}

// suggest returns the closest catalog name within a small edit distance.
func suggest(key string) string {
	best, bestDist := "", 3
	for _, spec := range catalog {
		if d := levenshtein.ComputeDistance(key, spec.name); d < bestDist {
			best, bestDist = spec.name, d
		}
	}
	return best
}

// TypeName returns the config name for t.
func TypeName(t int) string {
	if t < 0 || t >= len(catalog) {
		return "unknown"
	}
	return catalog[t].name
}

// DeviceName returns the display name for t.
func DeviceName(t int) string {
	if t < 0 || t >= len(catalog) {
		return ""
	}
	return catalog[t].device
}

func isI2C(t int) bool {
	return t >= 0 && t < len(catalog) && catalog[t].i2c
}

func isPM(t int) bool {
	return t <= TypeSDS011
}
