package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tekstlab/interlink/internal/domain"
)

// BlacklistRepository stores permanent (source, target URL) suppressions.
type BlacklistRepository struct {
	pool *pgxpool.Pool
}

func NewBlacklistRepository(pool *pgxpool.Pool) *BlacklistRepository {
	return &BlacklistRepository{pool: pool}
}

func (r *BlacklistRepository) Add(ctx context.Context, entry *domain.BlacklistEntry) error {
	if err := domain.ValidateBlacklistEntry(entry); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid blacklist entry", err)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return insertBlacklistRow(ctx, r.pool, entry.SourceID, entry.TargetURL, entry.AnchorText, entry.CreatedAt)
}

func (r *BlacklistRepository) Remove(ctx context.Context, sourceID int64, targetURL string) error {
	return deleteBlacklistRow(ctx, r.pool, sourceID, targetURL)
}

func (r *BlacklistRepository) Contains(ctx context.Context, sourceID int64, targetURL string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM link_blacklist WHERE source_id = $1 AND target_url = $2)`,
		sourceID, targetURL,
	).Scan(&exists)
	return exists, err
}

func insertBlacklistRow(ctx context.Context, q dbtx, sourceID int64, targetURL, anchorText string, createdAt time.Time) error {
	_, err := q.Exec(ctx,
		`INSERT INTO link_blacklist (source_id, target_url, anchor_text, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (source_id, target_url) DO NOTHING`,
		sourceID, targetURL, anchorText, createdAt,
	)
	return err
}

func deleteBlacklistRow(ctx context.Context, q dbtx, sourceID int64, targetURL string) error {
	_, err := q.Exec(ctx,
		`DELETE FROM link_blacklist WHERE source_id = $1 AND target_url = $2`,
		sourceID, targetURL,
	)
	return err
}
