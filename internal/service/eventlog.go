package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"airmonitor/internal/models"
	"airmonitor/internal/repository"

	"github.com/agnivade/levenshtein"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	ErrUnknownEventType = errors.New("unknown event type")
)

// maxTypeSuggestDistance bounds how far a typo may be from a known type and
// still get a suggestion.
const maxTypeSuggestDistance = 3

// EventLogService answers history queries over the device event log.
type EventLogService struct {
	events repository.EventRepo
}

func NewEventLogService(events repository.EventRepo) *EventLogService {
	return &EventLogService{events: events}
}

// List returns events matching f, oldest first. A positive f.Limit keeps the
// newest f.Limit of them.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.DeviceEvent, error) {
	f, err := resolveFilter(f)
	if err != nil {
		return nil, err
	}
	events, err := s.events.List(ctx, f.From, f.To, f.Type)
	if err != nil {
		return nil, err
	}
	if f.Limit > 0 && len(events) > f.Limit {
		events = events[len(events)-f.Limit:]
	}
	return events, nil
}

func resolveFilter(f LogFilter) (LogFilter, error) {
	f.From, f.To = toUTC(f.From), toUTC(f.To)
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, ErrInvalidTimeRange
	}
	if f.Limit < 0 {
		f.Limit = 0
	}
	typ, err := canonicalEventType(f.Type)
	if err != nil {
		return f, err
	}
	f.Type = typ
	return f, nil
}

// canonicalEventType maps "sensor-error" and " Sensor_Error " to SENSOR_ERROR.
// Unknown names fail with the closest known type as a hint.
func canonicalEventType(s string) (string, error) {
	key := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
	if key == "" || models.IsEventType(key) {
		return key, nil
	}

	best, bestDist := "", maxTypeSuggestDistance+1
	for _, typ := range models.EventTypes {
		if d := levenshtein.ComputeDistance(key, typ); d < bestDist {
			best, bestDist = typ, d
		}
	}
	if best != "" {
		return "", fmt.Errorf("%w %q, did you mean %s?", ErrUnknownEventType, s, best)
	}
	return "", fmt.Errorf("%w %q", ErrUnknownEventType, s)
}
