package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"airmonitor/internal/models"
	"airmonitor/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockPairing struct {
	token    string
	pairErr  error
	client   string
	parseErr error

	lastPIN        string
	lastClient     string
	lastParseToken string
}

func (m *mockPairing) Pair(pin, client string) (string, error) {
	m.lastPIN = pin
	m.lastClient = client
	return m.token, m.pairErr
}
func (m *mockPairing) ParseToken(token string) (string, error) {
	m.lastParseToken = token
	return m.client, m.parseErr
}

type mockMonitoring struct {
	state models.DeviceState
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.DeviceState, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp      []models.DeviceEvent
	err       error
	lastFrom  time.Time
	lastTo    time.Time
	lastType  string
	lastLimit int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.DeviceEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastLimit = f.Limit
	return m.resp, m.err
}

type mockPreferences struct {
	mu        sync.Mutex
	err       error
	submitted []models.PreferenceChange
}

func (m *mockPreferences) Submit(change models.PreferenceChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.submitted = append(m.submitted, change)
	return nil
}

func (m *mockPreferences) all() []models.PreferenceChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PreferenceChange(nil), m.submitted...)
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request, token string) *http.Request {
	for k, vv := range authHeader(token) {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
