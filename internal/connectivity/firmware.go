package connectivity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"airmonitor/internal/logger"
	"airmonitor/internal/metrics"
	"airmonitor/internal/models"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

const maxManifestBytes = 64 << 10

// Manifest is the update descriptor published next to firmware images.
//
//	version: 1.4.0
//	flavor: generic
//	target: dev
//	url: https://example.org/airmonitor-1.4.0.bin
type Manifest struct {
	Version string `yaml:"version"`
	Flavor  string `yaml:"flavor"`
	Target  string `yaml:"target"`
	URL     string `yaml:"url"`
	Notes   string `yaml:"notes"`
}

// FirmwareChecker compares the running build against a remote manifest.
// Checks run on its own goroutine; Poke only schedules one.
type FirmwareChecker struct {
	url      string
	interval time.Duration
	client   *http.Client
	current  *semver.Version
	events   EventSink
	log      *logger.Logger
	now      func() time.Time

	poke     chan struct{}
	lastPoke time.Time

	mu        sync.Mutex
	info      models.FirmwareInfo
	announced string
}

// NewFirmwareChecker validates the running version. An empty url disables checks.
func NewFirmwareChecker(url string, interval, timeout time.Duration, build models.FirmwareInfo, events EventSink, log *logger.Logger) (*FirmwareChecker, error) {
	current, err := semver.NewVersion(build.Version)
	if err != nil {
		return nil, fmt.Errorf("firmware version %q: %w", build.Version, err)
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if events == nil {
		events = nopSink{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &FirmwareChecker{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		current:  current,
		events:   events,
		log:      log,
		now:      time.Now,
		poke:     make(chan struct{}, 1),
		info:     build,
	}, nil
}

// Info returns the running build and the last check result.
func (c *FirmwareChecker) Info() models.FirmwareInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Poke schedules a check when the interval has elapsed. Only the main loop calls it.
func (c *FirmwareChecker) Poke() {
	if c.url == "" {
		return
	}
	now := c.now()
	if !c.lastPoke.IsZero() && now.Sub(c.lastPoke) < c.interval {
		return
	}
	c.lastPoke = now
	select {
	case c.poke <- struct{}{}:
	default:
	}
}

// Run performs scheduled checks until ctx is canceled.
func (c *FirmwareChecker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.poke:
			if _, err := c.Check(ctx); err != nil {
				c.log.Warnw("firmware_check_failed", "url", c.url, "err", err)
			}
		}
	}
}

// Check fetches the manifest once and records whether it offers a newer build.
func (c *FirmwareChecker) Check(ctx context.Context) (models.FirmwareInfo, error) {
	m, err := c.fetch(ctx)
	if err != nil {
		metrics.IncFirmwareCheck(metrics.ResultError)
		return c.Info(), err
	}
	latest, err := semver.NewVersion(m.Version)
	if err != nil {
		metrics.IncFirmwareCheck(metrics.ResultError)
		return c.Info(), fmt.Errorf("manifest version %q: %w", m.Version, err)
	}
	metrics.IncFirmwareCheck(metrics.ResultSuccess)

	c.mu.Lock()
	applies := (m.Flavor == "" || m.Flavor == c.info.Flavor) && (m.Target == "" || m.Target == c.info.Target)
	c.info.LatestVersion = latest.String()
	c.info.UpdateAvailable = applies && latest.GreaterThan(c.current)
	c.info.CheckedAt = c.now().UTC()
	info := c.info
	announce := info.UpdateAvailable && c.announced != info.LatestVersion
	if announce {
		c.announced = info.LatestVersion
	}
	c.mu.Unlock()

	if announce {
		c.log.Infow("firmware_update_available", "current", c.current.String(), "latest", info.LatestVersion, "url", m.URL)
		c.events.Record(models.EventFirmware, "firmware "+info.LatestVersion+" available", map[string]any{
			"current": c.current.String(),
			"latest":  info.LatestVersion,
			"url":     m.URL,
			"notes":   m.Notes,
		})
	}
	return info, nil
}

func (c *FirmwareChecker) fetch(ctx context.Context) (Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Manifest{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Manifest{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Manifest{}, fmt.Errorf("manifest: unexpected status %d", resp.StatusCode)
	}

	var m Manifest
	if err := yaml.NewDecoder(io.LimitReader(resp.Body, maxManifestBytes)).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}
