package predictionstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Record is one persisted prediction.
type Record struct {
	JobID         string    `db:"job_id"`
	AOI           string    `db:"aoi"`
	BuiltUpAreaHa float64   `db:"built_up_area_ha"`
	GrowthPercent float64   `db:"growth_percent"`
	IoU           float64   `db:"iou"`
	Confidence    float64   `db:"confidence"`
	ResultURL     string    `db:"result_url"`
	ProcessedAt   time.Time `db:"processed_at"`
}

const schema = `
	CREATE TABLE IF NOT EXISTS predictions (
		id               BIGSERIAL PRIMARY KEY,
		job_id           TEXT NOT NULL,
		aoi              JSONB NOT NULL,
		built_up_area_ha DOUBLE PRECISION NOT NULL CHECK (built_up_area_ha >= 0),
		growth_percent   DOUBLE PRECISION NOT NULL,
		iou              DOUBLE PRECISION NOT NULL CHECK (iou BETWEEN 0 AND 1),
		confidence       DOUBLE PRECISION NOT NULL CHECK (confidence BETWEEN 0 AND 1),
		result_url       TEXT NOT NULL,
		processed_at     TIMESTAMPTZ NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS predictions_job_id_idx ON predictions (job_id, created_at DESC);`

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create predictions table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	const query = `
		INSERT INTO predictions (
			job_id, aoi, built_up_area_ha, growth_percent,
			iou, confidence, result_url, processed_at
		) VALUES (
			:job_id, :aoi, :built_up_area_ha, :growth_percent,
			:iou, :confidence, :result_url, :processed_at
		)`
	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to save prediction for job %s: %w", rec.JobID, err)
	}
	return nil
}

// Latest returns the most recent prediction of a job.
func (s *PostgresStore) Latest(ctx context.Context, jobID string) (Record, error) {
	const query = `
		SELECT job_id, aoi, built_up_area_ha, growth_percent,
			iou, confidence, result_url, processed_at
		FROM predictions
		WHERE job_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	var rec Record
	if err := s.db.GetContext(ctx, &rec, query, jobID); err != nil {
		return Record{}, fmt.Errorf("failed to query prediction for job %s: %w", jobID, err)
	}
	return rec, nil
}
