package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"airmonitor/internal/models"

	"github.com/google/uuid"
)

// ErrUnknownEventType rejects rows the device never writes, so the log stays
// queryable by models.EventTypes.
var ErrUnknownEventType = errors.New("unknown event type")

// EventSQLite stores the device event log in the device_events table.
type EventSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db, now: time.Now} }

// sqliteTimestamp is the SQLite TIMESTAMP text layout used for storage and range filters.
const sqliteTimestamp = "2006-01-02 15:04:05"

const (
	insertEventSQL = `
		INSERT INTO device_events (id, occurred_at, type, message, meta)
		VALUES (?, ?, ?, ?, ?)
	`
	selectEventsSQL = `SELECT id, occurred_at, type, message, meta FROM device_events`
)

// Append writes e, filling a missing id and timestamp. Metadata is stored as JSON.
func (r *EventSQLite) Append(ctx context.Context, e models.DeviceEvent) error {
	typ := strings.ToUpper(strings.TrimSpace(e.Type))
	if !models.IsEventType(typ) {
		return fmt.Errorf("append event: %w %q", ErrUnknownEventType, e.Type)
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	at := e.OccurredAt
	if at.IsZero() {
		at = r.now()
	}

	meta, err := encodeMeta(e.Metadata)
	if err != nil {
		return fmt.Errorf("append event %s: %w", typ, err)
	}

	if _, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID, at.UTC().Format(sqliteTimestamp), typ, e.Description, meta); err != nil {
		return fmt.Errorf("append event %s: %w", typ, err)
	}
	return nil
}

func encodeMeta(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	s := string(b)
	return &s, nil
}

// eventQuery accumulates the WHERE clause of a List call.
type eventQuery struct {
	conds []string
	args  []any
}

func (q *eventQuery) where(cond string, arg any) {
	q.conds = append(q.conds, cond)
	q.args = append(q.args, arg)
}

func (q *eventQuery) sql() string {
	s := selectEventsSQL
	if len(q.conds) > 0 {
		s += " WHERE " + strings.Join(q.conds, " AND ")
	}
	return s + " ORDER BY occurred_at ASC"
}

// List returns events in [from, to] (inclusive, zero bounds are open) of the
// given type ("" for all), oldest first.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]models.DeviceEvent, error) {
	var q eventQuery
	if !from.IsZero() {
		q.where("occurred_at >= ?", from.UTC().Format(sqliteTimestamp))
	}
	if !to.IsZero() {
		q.where("occurred_at <= ?", to.UTC().Format(sqliteTimestamp))
	}
	if typ = strings.ToUpper(strings.TrimSpace(typ)); typ != "" {
		q.where("type = ?", typ)
	}

	rows, err := r.db.QueryContext(ctx, q.sql(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []models.DeviceEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func scanEvent(rows *sql.Rows) (models.DeviceEvent, error) {
	var (
		ev   models.DeviceEvent
		meta sql.NullString
	)
	if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &meta); err != nil {
		return ev, err
	}
	ev.OccurredAt = ev.OccurredAt.UTC()
	if meta.Valid && meta.String != "" {
		var v any
		if json.Unmarshal([]byte(meta.String), &v) == nil {
			ev.Metadata = v
		} else {
			// written by an older build; surface it verbatim
			ev.Metadata = meta.String
		}
	}
	return ev, nil
}
