package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"airmonitor/internal/models"
)

// ---- Test doubles ----

// settingsRepoStub is an in-memory repository.SettingsRepo.
type settingsRepoStub struct {
	mu      sync.Mutex
	stored  models.DeviceConfiguration
	loadErr error
	saveErr error
	saves   []models.DeviceConfiguration
}

func (s *settingsRepoStub) Save(ctx context.Context, cfg models.DeviceConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, cfg)
	if s.saveErr != nil {
		return s.saveErr
	}
	s.stored = cfg
	return nil
}

func (s *settingsRepoStub) Load(ctx context.Context, namespace string) (models.DeviceConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return models.DeviceConfiguration{}, s.loadErr
	}
	if s.stored.Namespace != namespace {
		return models.DeviceConfiguration{}, nil
	}
	return s.stored, nil
}

// eventRepoStub is an in-memory repository.EventRepo.
type eventRepoStub struct {
	mu        sync.Mutex
	appends   []models.DeviceEvent
	appendErr error
	listArgs  []any
	listResp  []models.DeviceEvent
}

func (e *eventRepoStub) Append(ctx context.Context, ev models.DeviceEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.appends = append(e.appends, ev)
	return e.appendErr
}

func (e *eventRepoStub) List(ctx context.Context, from, to time.Time, typ string) ([]models.DeviceEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listArgs = []any{from, to, typ}
	return e.listResp, nil
}

func (e *eventRepoStub) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.appends)
}

var errBoom = errors.New("boom")
