package connectivity

import (
	"context"
	"net"
	"time"
)

// Link is the WiFi uplink. Connect blocks for at most its own dial timeout.
type Link interface {
	Connect(ctx context.Context) (rssi int, err error)
	Disconnect()
}

// DialLink treats the host network as the WiFi radio: the link is up when a TCP
// dial to ProbeAddr succeeds, and the reported RSSI is derived from dial latency.
type DialLink struct {
	ProbeAddr string
	Timeout   time.Duration
}

func (l DialLink) Connect(ctx context.Context) (int, error) {
	d := net.Dialer{Timeout: l.Timeout}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", l.ProbeAddr)
	if err != nil {
		return 0, err
	}
	_ = conn.Close()
	return latencyRSSI(time.Since(start)), nil
}

func (DialLink) Disconnect() {}

// latencyRSSI maps dial latency to a plausible dBm value in [-90, -30].
func latencyRSSI(d time.Duration) int {
	rssi := -30 - int(d/(5*time.Millisecond))
	if rssi < -90 {
		return -90
	}
	return rssi
}

// wifiWorker keeps the link up until ctx is canceled.
func (m *Manager) wifiWorker(ctx context.Context) {
	defer m.wg.Done()
	t := time.NewTicker(m.opts.WifiRetry)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		case <-m.wifiPoke:
		}
		m.connectOnce(ctx)
	}
}

// connectOnce runs one connect attempt and publishes the result unless the
// worker was stopped meanwhile.
func (m *Manager) connectOnce(ctx context.Context) error {
	rssi, err := m.link.Connect(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	was := m.wifiConnected.Load()
	if err != nil {
		m.wifiConnected.Store(false)
		m.rssi.Store(0)
		if was {
			m.log.Warnw("wifi_disconnected", "ssid", m.cfg.SSID(), "err", err)
		}
		return err
	}
	m.wifiConnected.Store(true)
	m.rssi.Store(int64(rssi))
	if !was {
		m.log.Infow("wifi_connected", "ssid", m.cfg.SSID(), "rssi", rssi)
	}
	return nil
}
