package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	monitor "cyclewatch/internal/monitor/domain"
)

const defaultSamplesTable = "power_samples"

// Sample is one ingested power reading.
type Sample struct {
	Entity string
	TS     time.Time
	Watts  float64
}

// SampleRepository stores and serves power samples.
type SampleRepository struct {
	db    *sql.DB
	table string
}

// SampleRepositoryOption configures the repository.
type SampleRepositoryOption func(*SampleRepository)

// WithSamplesTable overrides the default samples table name.
func WithSamplesTable(table string) SampleRepositoryOption {
	return func(repo *SampleRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewSampleRepository constructs a sample repository.
func NewSampleRepository(db *sql.DB, opts ...SampleRepositoryOption) *SampleRepository {
	repo := &SampleRepository{db: db, table: defaultSamplesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// InsertSamples upserts power samples.
func (r *SampleRepository) InsertSamples(ctx context.Context, samples []Sample) error {
	if r == nil || r.db == nil {
		return errors.New("sample repo: nil db")
	}
	if len(samples) == 0 {
		return nil
	}

	query := `
INSERT INTO ` + r.table + ` (entity, ts, watts)
VALUES ($1, $2, $3)
ON CONFLICT (entity, ts)
DO UPDATE SET watts = EXCLUDED.watts`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, sample := range samples {
		if sample.Entity == "" || sample.TS.IsZero() {
			_ = tx.Rollback()
			return errors.New("sample repo: invalid sample")
		}
		if _, err := stmt.ExecContext(ctx, sample.Entity, sample.TS.UTC(), sample.Watts); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// LatestSample returns the most recent reading for an entity. A missing
// reading is reported as monitor.ErrNoSample, never as a hard failure.
func (r *SampleRepository) LatestSample(ctx context.Context, entity string) (float64, time.Time, error) {
	if r == nil || r.db == nil {
		return 0, time.Time{}, errors.New("sample repo: nil db")
	}
	if entity == "" {
		return 0, time.Time{}, errors.New("sample repo: entity required")
	}

	row := r.db.QueryRowContext(ctx, `
SELECT watts, ts
FROM `+r.table+`
WHERE entity = $1
ORDER BY ts DESC
LIMIT 1`, entity)

	var watts sql.NullFloat64
	var ts time.Time
	if err := row.Scan(&watts, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, time.Time{}, monitor.ErrNoSample
		}
		return 0, time.Time{}, err
	}
	if !watts.Valid {
		return 0, time.Time{}, monitor.ErrNoSample
	}
	return watts.Float64, ts.UTC(), nil
}
