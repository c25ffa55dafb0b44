// Package connectivity implements the radio-backed services of the device:
// WiFi uplink, config-server notifications, cloud publication and firmware checks.
//
// Every call made from the main loop returns immediately. Connects, publishes
// and manifest fetches run on worker goroutines owned by the Manager.
package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"airmonitor/internal/logger"
	"airmonitor/internal/metrics"
	"airmonitor/internal/models"
)

// ConfigView is the part of the config store the Manager reads.
type ConfigView interface {
	Config() models.DeviceConfiguration
	WifiEnabled() bool
	SSID() string
	InfluxEnabled() bool
	SampleTime() int
}

// Notifier pushes messages to config-server clients. Broadcast must not block.
type Notifier interface {
	Clients() int
	Broadcast(kind string, payload any)
}

// EventSink records device events without blocking.
type EventSink interface {
	Record(typ, description string, meta any)
}

type nopSink struct{}

func (nopSink) Record(string, string, any) {}

// Deps are the Manager collaborators. Only Config is required.
type Deps struct {
	Config       ConfigView
	Link         Link
	Notifier     Notifier
	StartServer  func() error
	State        func() any
	NewPublisher func() (Publisher, error)
	Breaker      *Breaker
	Firmware     *FirmwareChecker
	Build        models.FirmwareInfo
	Events       EventSink
	Log          *logger.Logger
}

// Options tunes worker behavior.
type Options struct {
	WifiRetry      time.Duration
	PublishQueue   int
	PublishTimeout time.Duration
	NotifyEvery    time.Duration
}

var (
	errNoLink   = errors.New("wifi: no link configured")
	errNoServer = errors.New("config server: not configured")
)

// Manager implements the device connectivity contract.
type Manager struct {
	cfg       ConfigView
	link      Link
	notifier  Notifier
	start     func() error
	state     func() any
	publisher func() (Publisher, error)
	breaker   *Breaker
	firmware  *FirmwareChecker
	build     models.FirmwareInfo
	events    EventSink
	log       *logger.Logger
	opts      Options
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	wifiCancel    context.CancelFunc
	wifiPoke      chan struct{}
	wifiConnected atomic.Bool
	rssi          atomic.Int64

	lastNotify time.Time

	cloudReady  atomic.Bool
	queue       chan models.Telemetry
	pub         Publisher
	lastPublish time.Time
}

// NewManager returns a Manager. Close stops its workers.
func NewManager(d Deps, opts Options) *Manager {
	if opts.WifiRetry <= 0 {
		opts.WifiRetry = 10 * time.Second
	}
	if opts.PublishQueue <= 0 {
		opts.PublishQueue = 8
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if opts.NotifyEvery <= 0 {
		opts.NotifyEvery = time.Second
	}
	if d.Events == nil {
		d.Events = nopSink{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Breaker == nil {
		d.Breaker = NewBreaker("cloud", BreakerConfig{}, d.Log)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:       d.Config,
		link:      d.Link,
		notifier:  d.Notifier,
		start:     d.StartServer,
		state:     d.State,
		publisher: d.NewPublisher,
		breaker:   d.Breaker,
		firmware:  d.Firmware,
		build:     d.Build,
		events:    d.Events,
		log:       d.Log,
		opts:      opts,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		wifiPoke:  make(chan struct{}, 1),
	}
}

// ---- WiFi ----

// InitWifi makes one bounded connect attempt and leaves a worker retrying in the background.
func (m *Manager) InitWifi(ctx context.Context) error {
	if !m.cfg.WifiEnabled() {
		m.log.Infow("wifi_disabled")
		return nil
	}
	if m.link == nil {
		return errNoLink
	}
	wctx := m.startWifiWorker()
	if wctx == nil {
		return nil
	}
	attempt, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-wctx.Done():
			cancel()
		case <-attempt.Done():
		}
	}()
	return m.connectOnce(attempt)
}

// startWifiWorker returns the worker context, or nil if it was already running.
func (m *Manager) startWifiWorker() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.wifiCancel != nil {
		return nil
	}
	wctx, cancel := context.WithCancel(m.ctx)
	m.wifiCancel = cancel
	m.wg.Add(1)
	go m.wifiWorker(wctx)
	return wctx
}

// LoopWifi follows the configured wifi mode. While the link is down the
// worker retries once per WifiRetry; the loop does not add attempts.
func (m *Manager) LoopWifi() {
	enabled := m.cfg.WifiEnabled()
	m.mu.Lock()
	running := m.wifiCancel != nil
	m.mu.Unlock()

	switch {
	case enabled && !running && m.link != nil:
		m.log.Infow("wifi_starting", "ssid", m.cfg.SSID())
		m.startWifiWorker()
		m.pokeWifi()
	case !enabled && running:
		m.StopWifi()
	}
}

func (m *Manager) pokeWifi() {
	select {
	case m.wifiPoke <- struct{}{}:
	default:
	}
}

// StopWifi drops the link and stops reconnect attempts. It does not wait for
// an in-flight attempt; that attempt's result is discarded.
func (m *Manager) StopWifi() {
	m.mu.Lock()
	if m.wifiCancel != nil {
		m.wifiCancel()
		m.wifiCancel = nil
	}
	m.wifiConnected.Store(false)
	m.rssi.Store(0)
	m.mu.Unlock()

	if m.link != nil {
		m.link.Disconnect()
	}
	m.log.Infow("wifi_stopped")
}

func (m *Manager) WifiConnected() bool { return m.wifiConnected.Load() }

func (m *Manager) RSSI() int { return int(m.rssi.Load()) }

// ---- Config server ----

// InitConfigServer starts the config server listener.
func (m *Manager) InitConfigServer() error {
	if m.start == nil {
		return errNoServer
	}
	return m.start()
}

// LoopConfigServer pushes the current state to connected clients, at most once per NotifyEvery.
func (m *Manager) LoopConfigServer() {
	if m.notifier == nil {
		return
	}
	clients := m.notifier.Clients()
	metrics.SetConfigClients(clients)
	if clients == 0 || m.state == nil {
		return
	}
	now := m.now()
	if !m.lastNotify.IsZero() && now.Sub(m.lastNotify) < m.opts.NotifyEvery {
		return
	}
	m.lastNotify = now
	m.notifier.Broadcast("state", m.state())
}

func (m *Manager) ConfigServerConnected() bool {
	return m.notifier != nil && m.notifier.Clients() > 0
}

// RefreshConfigServer re-advertises the configuration to clients.
func (m *Manager) RefreshConfigServer() {
	if m.notifier == nil {
		return
	}
	m.notifier.Broadcast("config", m.cfg.Config())
}

// ---- Cloud publication ----

// InitCloudPublish prepares the backend when cloud publication is enabled.
func (m *Manager) InitCloudPublish() error {
	if !m.cfg.InfluxEnabled() {
		m.log.Infow("cloud_publish_disabled")
		return nil
	}
	if m.publisher == nil {
		return errors.New("cloud: no publisher configured")
	}
	pub, err := m.publisher()
	if err != nil {
		return err
	}
	m.pub = pub
	m.queue = make(chan models.Telemetry, m.opts.PublishQueue)
	m.wg.Add(1)
	go m.cloudWorker()
	m.cloudReady.Store(true)
	return nil
}

// LoopCloudPublish queues a snapshot every two sample times while WiFi is up.
// build runs only when a publish is due; when it reports false the slot is
// not consumed and the next iteration tries again.
func (m *Manager) LoopCloudPublish(build func() (models.Telemetry, bool)) {
	if !m.cloudReady.Load() || !m.cfg.InfluxEnabled() || !m.wifiConnected.Load() {
		return
	}
	interval := 2 * time.Duration(m.cfg.SampleTime()) * time.Second
	now := m.now()
	if !m.lastPublish.IsZero() && now.Sub(m.lastPublish) < interval {
		return
	}
	t, ok := build()
	if !ok {
		return
	}
	m.lastPublish = now
	select {
	case m.queue <- t:
	default:
		metrics.IncCloudPublish(metrics.ResultSkipped)
		m.log.Warnw("cloud_queue_full", "device_id", t.DeviceID)
	}
}

func (m *Manager) cloudWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case t := <-m.queue:
			err := m.breaker.Execute(m.ctx, func(ctx context.Context) error {
				pctx, cancel := context.WithTimeout(ctx, m.opts.PublishTimeout)
				defer cancel()
				return m.pub.Publish(pctx, t)
			})
			switch {
			case err == nil:
				metrics.IncCloudPublish(metrics.ResultSuccess)
			case errors.Is(err, ErrOpen):
				metrics.IncCloudPublish(metrics.ResultSkipped)
			default:
				metrics.IncCloudPublish(metrics.ResultError)
			}
		}
	}
}

// ---- Firmware ----

// CheckFirmwareUpdate schedules a manifest check while WiFi is up.
func (m *Manager) CheckFirmwareUpdate() {
	if m.firmware == nil || !m.wifiConnected.Load() {
		return
	}
	m.firmware.Poke()
}

// StartFirmwareChecks runs the checker worker until Close.
func (m *Manager) StartFirmwareChecks() {
	if m.firmware == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.firmware.Run(m.ctx)
	}()
}

// Firmware reports the running build and the last update check.
func (m *Manager) Firmware() models.FirmwareInfo {
	if m.firmware == nil {
		return m.build
	}
	return m.firmware.Info()
}

// Close stops all workers and closes the publisher.
func (m *Manager) Close() error {
	m.cancel()
	m.wg.Wait()
	if m.pub != nil {
		return m.pub.Close()
	}
	return nil
}
