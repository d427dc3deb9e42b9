package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tekstlab/interlink/internal/service"
)

// RunRepository persists completed pipeline run summaries.
type RunRepository struct {
	pool *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

func (r *RunRepository) Record(ctx context.Context, report service.RunReport) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (run_id, started_at, finished_at, indexed, links_created, links_filtered, skipped, warnings)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (run_id) DO NOTHING`,
		report.RunID, report.StartedAt, report.FinishedAt,
		report.Indexed, report.Created, report.Filtered, report.Skipped, report.Warnings,
	)
	return err
}

// Latest returns the most recently finished run, or nil when none exist.
func (r *RunRepository) Latest(ctx context.Context) (*service.RunReport, error) {
	var report service.RunReport
	err := r.pool.QueryRow(ctx,
		`SELECT run_id, started_at, finished_at, indexed, links_created, links_filtered, skipped, warnings
		 FROM pipeline_runs ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&report.RunID, &report.StartedAt, &report.FinishedAt,
		&report.Indexed, &report.Created, &report.Filtered, &report.Skipped, &report.Warnings)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}
