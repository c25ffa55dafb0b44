package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"airmonitor/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000
	clientBuffer     = 8
)

// wsEnvelope is every message exchanged over /ws.
//
//	server -> client: {"type":"state","data":{...}}, {"type":"config","data":{...}}, {"type":"ack","data":{"kind":"wifi"}}
//	client -> server: a preference change, e.g. {"type":"brightness","value":40}
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// newUpgrader accepts the same origins as the REST CORS policy. An empty list
// or "*" allows any origin.
func newUpgrader(origins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		}
		allowed[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	if len(allowed) == 0 {
		return websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	}
	return websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// not a browser
			return true
		}
		if _, ok := allowed[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}}
}

// Hub tracks connected config clients and fans out device notifications.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	name string
	send chan wsEnvelope
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// Clients returns the number of connected clients.
func (hb *Hub) Clients() int {
	hb.mu.RLock()
	defer hb.mu.RUnlock()
	return len(hb.clients)
}

// Broadcast queues a message for every client. Slow clients miss messages
// instead of blocking the caller.
func (hb *Hub) Broadcast(kind string, payload any) {
	env := wsEnvelope{Type: kind, Data: payload}
	hb.mu.RLock()
	defer hb.mu.RUnlock()
	for cl := range hb.clients {
		cl.offer(env)
	}
}

func (hb *Hub) register(name string) *wsClient {
	cl := &wsClient{name: name, send: make(chan wsEnvelope, clientBuffer)}
	hb.mu.Lock()
	hb.clients[cl] = struct{}{}
	hb.mu.Unlock()
	return cl
}

func (hb *Hub) unregister(cl *wsClient) {
	hb.mu.Lock()
	delete(hb.clients, cl)
	hb.mu.Unlock()
}

func (cl *wsClient) offer(env wsEnvelope) bool {
	select {
	case cl.send <- env:
		return true
	default:
		return false
	}
}

func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	name := c.GetString(ctxClient)
	cl := h.hub.register(name)
	defer h.hub.unregister(cl)
	h.log.Infow("ws_client_connected", "client", name, "clients", h.hub.Clients())

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, cl, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	// periodic state only when the client asked for an interval
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	ctx := c.Request.Context()
	if err := h.sendState(ctx, conn); err != nil {
		h.log.Infow("ws_write_failed_initial", "err", err)
		return
	}

	for {
		select {
		case <-done:
			h.log.Infow("ws_client_disconnected", "client", name)
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Infow("ws_ping_failed", "err", err)
				return
			}
		case <-tick:
			if err := h.sendState(ctx, conn); err != nil {
				h.log.Infow("ws_write_failed", "err", err)
				return
			}
		case env := <-cl.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				h.log.Infow("ws_write_failed", "type", env.Type, "err", err)
				return
			}
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000. Zero means push-only.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}
	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}
	return 0
}

// startReader decodes preference changes sent by the client and queues them.
// Replies go through the client's send queue; only the connection loop writes.
func (h *Handler) startReader(conn *websocket.Conn, cl *wsClient, done chan<- struct{}) {
	defer close(done)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			h.log.Debugw("ws_read_closed", "err", err)
			return
		}
		change, err := models.DecodePreferenceChange(raw)
		if err != nil {
			cl.offer(wsEnvelope{Type: "error", Error: err.Error()})
			continue
		}
		if code, msg := h.submit(change); code != http.StatusAccepted {
			cl.offer(wsEnvelope{Type: "error", Error: msg})
			continue
		}
		h.log.Infow("preference_queued", "kind", change.Kind(), "client", cl.name, "via", "ws")
		cl.offer(wsEnvelope{Type: "ack", Data: gin.H{"kind": change.Kind()}})
	}
}

func (h *Handler) sendState(ctx context.Context, conn *websocket.Conn) error {
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		h.log.Errorw("ws_get_state_failed", "err", err)
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: "state", Data: st})
}
