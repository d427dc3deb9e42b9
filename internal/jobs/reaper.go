package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgressReaper deletes expired pipeline progress rows. The Postgres
// progress store only reaps lazily on read, so without this task an
// abandoned run's record would linger past its TTL until the next Get.
type ProgressReaper struct {
	pool *pgxpool.Pool
}

// NewProgressReaper creates a ProgressReaper.
func NewProgressReaper(pool *pgxpool.Pool) *ProgressReaper {
	return &ProgressReaper{pool: pool}
}

// Run implements the Task interface
func (r *ProgressReaper) Run(ctx context.Context) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM pipeline_progress WHERE expires_at IS NOT NULL AND expires_at <= now()`,
	)
	if err != nil {
		return fmt.Errorf("failed to reap expired progress: %w", err)
	}
	if tag.RowsAffected() > 0 {
		log.Printf("reaped %d expired progress records", tag.RowsAffected())
	}
	return nil
}
