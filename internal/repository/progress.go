package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgressStore is the default progress.Store backed by Postgres, for
// deployments without Redis. Expired rows are treated as absent and lazily
// reaped on read.
type ProgressStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool, now: time.Now}
}

func (s *ProgressStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT value, expires_at FROM pipeline_progress WHERE key = $1`,
		key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expiresAt != nil && !expiresAt.After(s.now()) {
		_, _ = s.pool.Exec(ctx, `DELETE FROM pipeline_progress WHERE key = $1`, key)
		return nil, false, nil
	}
	return value, true, nil
}

func (s *ProgressStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := s.now().Add(ttl)
		expiresAt = &t
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pipeline_progress (key, value, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, expiresAt,
	)
	return err
}

func (s *ProgressStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pipeline_progress WHERE key = $1`, key)
	return err
}
