package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cyclewatch/internal/monitor/application"
	monitor "cyclewatch/internal/monitor/domain"
)

const defaultCyclesTable = "device_cycles"

// CycleRepository persists phase-close summaries and serves cycle history.
// The table name mirrors the configurable measurement name.
type CycleRepository struct {
	db    *sql.DB
	table string
}

// CycleRepositoryOption configures the repository.
type CycleRepositoryOption func(*CycleRepository)

// WithCyclesTable overrides the default cycles table name.
func WithCyclesTable(table string) CycleRepositoryOption {
	return func(repo *CycleRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewCycleRepository constructs a cycle repository.
func NewCycleRepository(db *sql.DB, opts ...CycleRepositoryOption) *CycleRepository {
	repo := &CycleRepository{db: db, table: defaultCyclesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// InsertCycle writes one phase-close summary row. Mean and median for both
// phases are always persisted regardless of the configured statistic.
func (r *CycleRepository) InsertCycle(ctx context.Context, summary application.CycleSummary) error {
	if r == nil || r.db == nil {
		return errors.New("cycle repo: nil db")
	}
	if summary.Entity == "" || summary.EndedAt.IsZero() {
		return errors.New("cycle repo: invalid summary")
	}

	query := `
INSERT INTO ` + r.table + ` (
	entity,
	phase,
	duration_minutes,
	ended_at,
	mean_active_minutes,
	median_active_minutes,
	mean_inactive_minutes,
	median_inactive_minutes,
	alert_state,
	alert_kind
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
)`

	_, err := r.db.ExecContext(
		ctx,
		query,
		summary.Entity,
		string(summary.Phase),
		summary.DurationMinutes,
		summary.EndedAt.UTC(),
		summary.Baseline.MeanActive,
		summary.Baseline.MedianActive,
		summary.Baseline.MeanInactive,
		summary.Baseline.MedianInactive,
		summary.AlertState,
		string(summary.AlertKind),
	)
	return err
}

// ListCycles returns completed phase records within [from, to].
func (r *CycleRepository) ListCycles(ctx context.Context, entity string, from, to time.Time) ([]monitor.PhaseRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("cycle repo: nil db")
	}
	if entity == "" {
		return nil, errors.New("cycle repo: entity required")
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT phase, duration_minutes, ended_at
FROM `+r.table+`
WHERE entity = $1
	AND ended_at >= $2
	AND ended_at <= $3
ORDER BY ended_at ASC`, entity, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []monitor.PhaseRecord
	for rows.Next() {
		var phase string
		var record monitor.PhaseRecord
		if err := rows.Scan(&phase, &record.DurationMinutes, &record.EndedAt); err != nil {
			return nil, err
		}
		record.Entity = entity
		record.Phase = monitor.Phase(phase)
		record.EndedAt = record.EndedAt.UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ListSummaries returns full summary rows within [from, to] for the API and
// exports.
func (r *CycleRepository) ListSummaries(ctx context.Context, entity string, from, to time.Time) ([]application.CycleSummary, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("cycle repo: nil db")
	}
	if entity == "" {
		return nil, errors.New("cycle repo: entity required")
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT
	phase,
	duration_minutes,
	ended_at,
	mean_active_minutes,
	median_active_minutes,
	mean_inactive_minutes,
	median_inactive_minutes,
	alert_state,
	alert_kind
FROM `+r.table+`
WHERE entity = $1
	AND ended_at >= $2
	AND ended_at <= $3
ORDER BY ended_at DESC`, entity, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []application.CycleSummary
	for rows.Next() {
		var phase, alertState, alertKind string
		summary := application.CycleSummary{Entity: entity}
		if err := rows.Scan(
			&phase,
			&summary.DurationMinutes,
			&summary.EndedAt,
			&summary.Baseline.MeanActive,
			&summary.Baseline.MedianActive,
			&summary.Baseline.MeanInactive,
			&summary.Baseline.MedianInactive,
			&alertState,
			&alertKind,
		); err != nil {
			return nil, err
		}
		summary.Phase = monitor.Phase(phase)
		summary.EndedAt = summary.EndedAt.UTC()
		summary.AlertState = alertState
		summary.AlertKind = monitor.AlertKind(alertKind)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}
