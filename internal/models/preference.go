package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Preference change kinds as they appear on the config-server wire.
const (
	KindWifi           = "wifi"
	KindBrightness     = "brightness"
	KindColorsInverted = "colors_inverted"
	KindSampleTime     = "sample_time"
	KindCalibration    = "calibration"
)

// ErrInvalidPreference is returned when a preference change cannot be decoded or is out of range.
var ErrInvalidPreference = errors.New("invalid preference change")

// PreferenceChange is a user-initiated configuration change coming from the config server.
// The set of variants is closed: only the types in this file implement it.
type PreferenceChange interface {
	Kind() string
	preferenceChange()
}

// WifiToggled enables or disables the WiFi client.
type WifiToggled struct {
	Enabled bool
}

// BrightnessChanged sets the display backlight level.
type BrightnessChanged struct {
	Value int
}

// ColorInversionToggled switches the display palette.
type ColorInversionToggled struct {
	Enabled bool
}

// SampleTimeChanged sets the sensor acquisition interval in seconds.
type SampleTimeChanged struct {
	Seconds int
}

// CalibrationRequested asks the CO2 sensor to recalibrate against the outdoor baseline.
type CalibrationRequested struct{}

func (WifiToggled) Kind() string           { return KindWifi }
func (BrightnessChanged) Kind() string     { return KindBrightness }
func (ColorInversionToggled) Kind() string { return KindColorsInverted }
func (SampleTimeChanged) Kind() string     { return KindSampleTime }
func (CalibrationRequested) Kind() string  { return KindCalibration }

func (WifiToggled) preferenceChange()           {}
func (BrightnessChanged) preferenceChange()     {}
func (ColorInversionToggled) preferenceChange() {}
func (SampleTimeChanged) preferenceChange()     {}
func (CalibrationRequested) preferenceChange()  {}

// preferenceWire is the JSON body accepted by the config server.
//
//	{"type":"sample_time","value":30}
//	{"type":"wifi","enabled":false}
//	{"type":"calibration"}
type preferenceWire struct {
	Type    string `json:"type"`
	Enabled *bool  `json:"enabled,omitempty"`
	Value   *int   `json:"value,omitempty"`
}

// DecodePreferenceChange parses a config-server message into a PreferenceChange variant.
func DecodePreferenceChange(raw []byte) (PreferenceChange, error) {
	var w preferenceWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreference, err)
	}

	switch strings.ToLower(strings.TrimSpace(w.Type)) {
	case KindWifi:
		if w.Enabled == nil {
			return nil, fmt.Errorf("%w: wifi requires 'enabled'", ErrInvalidPreference)
		}
		return WifiToggled{Enabled: *w.Enabled}, nil
	case KindBrightness:
		if w.Value == nil || *w.Value < 0 || *w.Value > MaxBrightness {
			return nil, fmt.Errorf("%w: brightness requires 'value' in [0,%d]", ErrInvalidPreference, MaxBrightness)
		}
		return BrightnessChanged{Value: *w.Value}, nil
	case KindColorsInverted:
		if w.Enabled == nil {
			return nil, fmt.Errorf("%w: colors_inverted requires 'enabled'", ErrInvalidPreference)
		}
		return ColorInversionToggled{Enabled: *w.Enabled}, nil
	case KindSampleTime:
		if w.Value == nil || *w.Value <= 0 {
			return nil, fmt.Errorf("%w: sample_time requires a positive 'value'", ErrInvalidPreference)
		}
		return SampleTimeChanged{Seconds: *w.Value}, nil
	case KindCalibration:
		return CalibrationRequested{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidPreference, w.Type)
	}
}
