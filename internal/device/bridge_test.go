package device

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"airmonitor/internal/models"
)

func newBridge(r *rig, size int) *PreferenceBridge {
	return NewPreferenceBridge(r.config, r.hub, r.conn, size, r.events, nil)
}

func TestBridge_WifiOff_PersistReloadThenStopOnce(t *testing.T) {
	r := newRig()
	b := newBridge(r, 4)

	b.Apply(context.Background(), models.WifiToggled{Enabled: false})

	want := []string{"config.SetWifiEnabled(false)", "config.Reload", "conn.StopWifi"}
	if got := r.log.all(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
}

func TestBridge_WifiOn_DoesNotStop(t *testing.T) {
	r := newRig()
	b := newBridge(r, 4)

	b.Apply(context.Background(), models.WifiToggled{Enabled: true})

	if r.log.count("conn.StopWifi") != 0 {
		t.Fatalf("StopWifi must not be called when enabling")
	}
	if r.log.count("config.Reload") != 1 {
		t.Fatalf("expected one reload, got %v", r.log.all())
	}
}

func TestBridge_BrightnessAndColors_PersistOnly(t *testing.T) {
	r := newRig()
	b := newBridge(r, 4)

	b.Apply(context.Background(), models.BrightnessChanged{Value: 70})
	b.Apply(context.Background(), models.ColorInversionToggled{Enabled: true})

	want := []string{"config.SaveBrightness(70)", "config.SetColorsInverted(true)"}
	if got := r.log.all(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
}

func TestBridge_SampleTime_AppliesWhenChanged(t *testing.T) {
	r := newRig()
	b := newBridge(r, 4)

	b.Apply(context.Background(), models.SampleTimeChanged{Seconds: 30})

	want := []string{
		"config.SaveSampleTime(30)",
		"config.Reload",
		"conn.RefreshConfigServer",
		"sensors.SetSampleTime(30)",
	}
	if got := r.log.all(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	if len(r.events.ofType(models.EventPreference)) != 1 {
		t.Fatalf("expected one preference event")
	}
}

func TestBridge_SampleTime_SameValueIsNoop(t *testing.T) {
	r := newRig()
	b := newBridge(r, 4)
	r.hub.sampleTime = 5

	b.Apply(context.Background(), models.SampleTimeChanged{Seconds: 5})

	if got := r.log.all(); len(got) != 0 {
		t.Fatalf("expected no calls, got %v", got)
	}
	if len(r.events.events) != 0 {
		t.Fatalf("no event expected for an unchanged sample time")
	}
}

func TestBridge_SampleTime_ComparesAgainstHubNotConfig(t *testing.T) {
	r := newRig()
	b := newBridge(r, 4)
	// during startup the hub runs at 1s while the stored value is 5s
	r.hub.sampleTime = 1

	b.Apply(context.Background(), models.SampleTimeChanged{Seconds: 5})

	if r.log.count("config.SaveSampleTime(5)") != 1 || r.log.count("sensors.SetSampleTime(5)") != 1 {
		t.Fatalf("expected sample time to be applied, got %v", r.log.all())
	}
}

func TestBridge_Calibration_Uses418Once(t *testing.T) {
	r := newRig()
	b := newBridge(r, 4)
	r.hub.reading = models.SensorReading{DeviceType: 4, CO2: 2400}

	b.Apply(context.Background(), models.CalibrationRequested{})

	want := []string{"sensors.Recalibrate(418)"}
	if got := r.log.all(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
}

type unknownChange struct{ models.WifiToggled }

func (unknownChange) Kind() string { return "mystery" }

func TestBridge_UnknownVariantIgnored(t *testing.T) {
	r := newRig()
	b := newBridge(r, 4)

	b.Apply(context.Background(), unknownChange{})

	if got := r.log.all(); len(got) != 0 {
		t.Fatalf("unknown change must not touch collaborators, got %v", got)
	}
}

func TestBridge_SubmitIsQueuedUntilDrain(t *testing.T) {
	r := newRig()
	b := newBridge(r, 4)

	if err := b.Submit(models.BrightnessChanged{Value: 10}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := b.Submit(models.CalibrationRequested{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(r.log.all()) != 0 {
		t.Fatalf("changes must not apply before Drain")
	}
	if b.Pending() != 2 {
		t.Fatalf("pending: got %d", b.Pending())
	}

	if n := b.Drain(context.Background()); n != 2 {
		t.Fatalf("Drain applied %d, want 2", n)
	}
	want := []string{"config.SaveBrightness(10)", "sensors.Recalibrate(418)"}
	if got := r.log.all(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	if b.Drain(context.Background()) != 0 {
		t.Fatalf("second drain should be empty")
	}
}

func TestBridge_SubmitFullQueue(t *testing.T) {
	r := newRig()
	b := newBridge(r, 1)

	if err := b.Submit(models.BrightnessChanged{Value: 1}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := b.Submit(models.BrightnessChanged{Value: 2}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if err := b.Submit(nil); !errors.Is(err, models.ErrInvalidPreference) {
		t.Fatalf("expected ErrInvalidPreference for nil, got %v", err)
	}
}
