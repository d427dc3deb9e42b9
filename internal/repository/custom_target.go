package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/tekstlab/interlink/internal/domain"
)

// CustomTargetRepository reads curated external targets. Title vectors live
// in the shared embedding store under the "custom:ID" owner; targets whose
// titles were never embedded come back with a nil vector and are skipped by
// the matcher.
type CustomTargetRepository struct {
	pool *pgxpool.Pool
}

func NewCustomTargetRepository(pool *pgxpool.Pool) *CustomTargetRepository {
	return &CustomTargetRepository{pool: pool}
}

func (r *CustomTargetRepository) List(ctx context.Context) ([]domain.CustomTarget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.title, t.url, e.vector
		 FROM custom_targets t
		 LEFT JOIN embeddings e
		   ON e.owner_id = 'custom:' || t.id AND e.chunk_index = 0
		 ORDER BY t.id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []domain.CustomTarget
	for rows.Next() {
		var target domain.CustomTarget
		var vector *pgvector.Vector
		if err := rows.Scan(&target.ID, &target.Title, &target.URL, &vector); err != nil {
			return nil, err
		}
		if vector != nil {
			target.Vector = vector.Slice()
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

func (r *CustomTargetRepository) Upsert(ctx context.Context, target *domain.CustomTarget) error {
	if target.Title == "" || target.URL == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "custom target title and url are required")
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO custom_targets (id, title, url)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, url = EXCLUDED.url`,
		target.ID, target.Title, target.URL,
	)
	return err
}

func (r *CustomTargetRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM custom_targets WHERE id = $1`, id)
	return err
}
