package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"airmonitor/internal/models"
)

type configStub struct {
	mu  sync.Mutex
	cfg models.DeviceConfiguration
}

func newConfigStub() *configStub {
	return &configStub{cfg: models.DeviceConfiguration{
		DeviceID:      "A4CF12F0E1B2",
		WifiEnabled:   true,
		SSID:          "lab-net",
		SampleTime:    5,
		InfluxEnabled: true,
	}}
}

func (c *configStub) Config() models.DeviceConfiguration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

func (c *configStub) WifiEnabled() bool   { return c.Config().WifiEnabled }
func (c *configStub) SSID() string        { return c.Config().SSID }
func (c *configStub) InfluxEnabled() bool { return c.Config().InfluxEnabled }
func (c *configStub) SampleTime() int     { return c.Config().SampleTime }

func (c *configStub) setWifi(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.WifiEnabled = on
}

type linkStub struct {
	attempts    atomic.Int32
	disconnects atomic.Int32
	fail        atomic.Bool
	block       chan struct{}
}

func (l *linkStub) Connect(ctx context.Context) (int, error) {
	l.attempts.Add(1)
	if l.block != nil {
		select {
		case <-l.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if l.fail.Load() {
		return 0, errors.New("no ap")
	}
	return -58, nil
}

func (l *linkStub) Disconnect() { l.disconnects.Add(1) }

type notifierStub struct {
	mu      sync.Mutex
	clients int
	kinds   []string
}

func (n *notifierStub) Clients() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clients
}

func (n *notifierStub) Broadcast(kind string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
}

func (n *notifierStub) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.kinds...)
}

type publisherStub struct {
	published chan models.Telemetry
	err       error
	closed    atomic.Bool
}

func (p *publisherStub) Publish(_ context.Context, t models.Telemetry) error {
	if p.err != nil {
		return p.err
	}
	p.published <- t
	return nil
}

func (p *publisherStub) Close() error { p.closed.Store(true); return nil }

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestManager_InitWifi(t *testing.T) {
	cfg := newConfigStub()
	link := &linkStub{}
	m := NewManager(Deps{Config: cfg, Link: link}, Options{WifiRetry: time.Hour})
	t.Cleanup(func() { _ = m.Close() })

	if err := m.InitWifi(context.Background()); err != nil {
		t.Fatalf("InitWifi: %v", err)
	}
	if !m.WifiConnected() || m.RSSI() != -58 {
		t.Fatalf("connected=%v rssi=%d", m.WifiConnected(), m.RSSI())
	}
}

func TestManager_InitWifi_DisabledIsNoop(t *testing.T) {
	cfg := newConfigStub()
	cfg.setWifi(false)
	link := &linkStub{}
	m := NewManager(Deps{Config: cfg, Link: link}, Options{})
	t.Cleanup(func() { _ = m.Close() })

	if err := m.InitWifi(context.Background()); err != nil {
		t.Fatalf("InitWifi: %v", err)
	}
	if link.attempts.Load() != 0 || m.WifiConnected() {
		t.Fatalf("disabled wifi must not connect")
	}
}

func TestManager_InitWifi_FailureKeepsRetrying(t *testing.T) {
	cfg := newConfigStub()
	link := &linkStub{}
	link.fail.Store(true)
	m := NewManager(Deps{Config: cfg, Link: link}, Options{WifiRetry: 10 * time.Millisecond})
	t.Cleanup(func() { _ = m.Close() })

	if err := m.InitWifi(context.Background()); err == nil {
		t.Fatalf("expected first attempt to fail")
	}
	link.fail.Store(false)
	eventually(t, "background reconnect", m.WifiConnected)
}

func TestManager_LoopWifi_FollowsConfig(t *testing.T) {
	cfg := newConfigStub()
	link := &linkStub{}
	m := NewManager(Deps{Config: cfg, Link: link}, Options{WifiRetry: time.Hour})
	t.Cleanup(func() { _ = m.Close() })

	if err := m.InitWifi(context.Background()); err != nil {
		t.Fatalf("InitWifi: %v", err)
	}

	cfg.setWifi(false)
	m.LoopWifi()
	if m.WifiConnected() || link.disconnects.Load() != 1 {
		t.Fatalf("disable: connected=%v disconnects=%d", m.WifiConnected(), link.disconnects.Load())
	}

	cfg.setWifi(true)
	m.LoopWifi()
	eventually(t, "reconnect after enable", m.WifiConnected)
}

func TestManager_LoopWifi_HonorsRetryInterval(t *testing.T) {
	cfg := newConfigStub()
	link := &linkStub{}
	link.fail.Store(true)
	m := NewManager(Deps{Config: cfg, Link: link}, Options{WifiRetry: time.Hour})
	t.Cleanup(func() { _ = m.Close() })

	if err := m.InitWifi(context.Background()); err == nil {
		t.Fatalf("InitWifi: expected error from failing link")
	}
	for i := 0; i < 20; i++ {
		m.LoopWifi()
		time.Sleep(5 * time.Millisecond)
	}
	if got := link.attempts.Load(); got > 2 {
		t.Fatalf("attempts = %d while disconnected, want <= 2", got)
	}
	if m.WifiConnected() {
		t.Fatalf("failing link must not report connected")
	}
}

func TestManager_StopWifi_DoesNotWaitForAttempt(t *testing.T) {
	cfg := newConfigStub()
	link := &linkStub{block: make(chan struct{})}
	m := NewManager(Deps{Config: cfg, Link: link}, Options{WifiRetry: time.Hour})
	t.Cleanup(func() { _ = m.Close() })

	m.LoopWifi() // starts the worker and pokes it
	eventually(t, "attempt in flight", func() bool { return link.attempts.Load() == 1 })

	done := make(chan struct{})
	go func() {
		m.StopWifi()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("StopWifi blocked on an in-flight connect")
	}
	close(link.block)
	time.Sleep(20 * time.Millisecond)
	if m.WifiConnected() {
		t.Fatalf("late attempt result must be discarded")
	}
}

func TestManager_ConfigServer(t *testing.T) {
	cfg := newConfigStub()
	n := &notifierStub{}
	started := false
	m := NewManager(Deps{
		Config:      cfg,
		Notifier:    n,
		StartServer: func() error { started = true; return nil },
		State:       func() any { return "state" },
	}, Options{NotifyEvery: time.Second})
	t.Cleanup(func() { _ = m.Close() })
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if err := m.InitConfigServer(); err != nil || !started {
		t.Fatalf("InitConfigServer: err=%v started=%v", err, started)
	}

	m.LoopConfigServer()
	if m.ConfigServerConnected() || len(n.sent()) != 0 {
		t.Fatalf("no clients: nothing should be sent")
	}

	n.mu.Lock()
	n.clients = 2
	n.mu.Unlock()
	m.LoopConfigServer()
	m.LoopConfigServer()
	now = now.Add(time.Second)
	m.LoopConfigServer()
	m.RefreshConfigServer()

	want := []string{"state", "state", "config"}
	got := n.sent()
	if len(got) != len(want) {
		t.Fatalf("sent = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sent = %v, want %v", got, want)
		}
	}
	if !m.ConfigServerConnected() {
		t.Fatalf("expected connected clients")
	}
}

func TestManager_InitConfigServer_Unconfigured(t *testing.T) {
	m := NewManager(Deps{Config: newConfigStub()}, Options{})
	t.Cleanup(func() { _ = m.Close() })
	if err := m.InitConfigServer(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestManager_CloudPublish(t *testing.T) {
	cfg := newConfigStub()
	pub := &publisherStub{published: make(chan models.Telemetry, 4)}
	m := NewManager(Deps{
		Config:       cfg,
		Link:         &linkStub{},
		NewPublisher: func() (Publisher, error) { return pub, nil },
	}, Options{WifiRetry: time.Hour})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if err := m.InitCloudPublish(); err != nil {
		t.Fatalf("InitCloudPublish: %v", err)
	}

	builds := 0
	snapshot := func(v uint16) func() (models.Telemetry, bool) {
		return func() (models.Telemetry, bool) {
			builds++
			return models.Telemetry{DeviceID: "x", MainValue: v}, true
		}
	}

	// not connected yet
	m.LoopCloudPublish(snapshot(1))
	if err := m.InitWifi(context.Background()); err != nil {
		t.Fatalf("InitWifi: %v", err)
	}

	m.LoopCloudPublish(snapshot(2))
	now = now.Add(5 * time.Second) // below 2x sample time
	m.LoopCloudPublish(snapshot(3))
	now = now.Add(5 * time.Second)
	m.LoopCloudPublish(snapshot(4))

	if builds != 2 {
		t.Fatalf("snapshot built %d times, want only when due (2)", builds)
	}

	for _, want := range []uint16{2, 4} {
		select {
		case got := <-pub.published:
			if got.MainValue != want {
				t.Fatalf("published %d, want %d", got.MainValue, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %d", want)
		}
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !pub.closed.Load() {
		t.Fatalf("publisher not closed")
	}
}

func TestManager_CloudPublish_Disabled(t *testing.T) {
	cfg := newConfigStub()
	cfg.cfg.InfluxEnabled = false
	called := false
	m := NewManager(Deps{
		Config:       cfg,
		NewPublisher: func() (Publisher, error) { called = true; return nil, nil },
	}, Options{})
	t.Cleanup(func() { _ = m.Close() })

	if err := m.InitCloudPublish(); err != nil || called {
		t.Fatalf("disabled cloud: err=%v called=%v", err, called)
	}
	m.LoopCloudPublish(func() (models.Telemetry, bool) {
		t.Fatalf("snapshot built while cloud is disabled")
		return models.Telemetry{}, false
	})
}

func TestManager_CloudPublish_SkippedSnapshotKeepsSlot(t *testing.T) {
	cfg := newConfigStub()
	pub := &publisherStub{published: make(chan models.Telemetry, 1)}
	m := NewManager(Deps{
		Config:       cfg,
		Link:         &linkStub{},
		NewPublisher: func() (Publisher, error) { return pub, nil },
	}, Options{WifiRetry: time.Hour})
	t.Cleanup(func() { _ = m.Close() })
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if err := m.InitCloudPublish(); err != nil {
		t.Fatalf("InitCloudPublish: %v", err)
	}
	if err := m.InitWifi(context.Background()); err != nil {
		t.Fatalf("InitWifi: %v", err)
	}

	// no sensor yet
	m.LoopCloudPublish(func() (models.Telemetry, bool) { return models.Telemetry{}, false })
	now = now.Add(time.Second)
	m.LoopCloudPublish(func() (models.Telemetry, bool) { return models.Telemetry{DeviceID: "x", MainValue: 7}, true })

	select {
	case got := <-pub.published:
		if got.MainValue != 7 {
			t.Fatalf("published %d, want 7", got.MainValue)
		}
	case <-time.After(time.Second):
		t.Fatalf("publish after a skipped snapshot was throttled")
	}
}

func TestManager_Firmware(t *testing.T) {
	info := models.FirmwareInfo{Version: "1.2.0"}
	m := NewManager(Deps{Config: newConfigStub(), Build: info}, Options{})
	t.Cleanup(func() { _ = m.Close() })

	m.CheckFirmwareUpdate()
	if m.Firmware().Version != "1.2.0" {
		t.Fatalf("Firmware() = %+v", m.Firmware())
	}
}
