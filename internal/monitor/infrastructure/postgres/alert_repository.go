package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cyclewatch/internal/monitor/application"
	monitor "cyclewatch/internal/monitor/domain"
)

const defaultAlertEventsTable = "alert_events"

// AlertRepository persists alert lifecycle events.
type AlertRepository struct {
	db    *sql.DB
	table string
}

// NewAlertRepository constructs an alert event repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db, table: defaultAlertEventsTable}
}

// InsertAlertEvent writes one alert lifecycle record.
func (r *AlertRepository) InsertAlertEvent(ctx context.Context, event application.AlertEvent) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if event.Entity == "" || event.At.IsZero() {
		return errors.New("alert repo: invalid event")
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO `+r.table+` (entity, kind, state, message, occurred_at)
VALUES ($1, $2, $3, $4, $5)`,
		event.Entity,
		string(event.Kind),
		event.State,
		event.Message,
		event.At.UTC(),
	)
	return err
}

// ListAlertEvents returns alert events for an entity within [from, to],
// newest first. An empty state matches all states.
func (r *AlertRepository) ListAlertEvents(ctx context.Context, entity, state string, from, to time.Time) ([]application.AlertEvent, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	if entity == "" {
		return nil, errors.New("alert repo: entity required")
	}

	query := `
SELECT kind, state, message, occurred_at
FROM ` + r.table + `
WHERE entity = $1
	AND occurred_at >= $2
	AND occurred_at <= $3`
	args := []any{entity, from.UTC(), to.UTC()}
	if state != "" {
		query += ` AND state = $4`
		args = append(args, state)
	}
	query += ` ORDER BY occurred_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []application.AlertEvent
	for rows.Next() {
		var kind string
		event := application.AlertEvent{Entity: entity}
		if err := rows.Scan(&kind, &event.State, &event.Message, &event.At); err != nil {
			return nil, err
		}
		event.Kind = monitor.AlertKind(kind)
		event.At = event.At.UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
