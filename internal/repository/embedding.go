package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/tekstlab/interlink/internal/domain"
)

// EmbeddingRepository persists vectors in the embeddings table, one row per
// (owner, chunk index).
type EmbeddingRepository struct {
	pool *pgxpool.Pool
}

func NewEmbeddingRepository(pool *pgxpool.Pool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

// OwnerHash returns the content hash stored with the owner's title row, or
// "" when the owner has no embeddings yet.
func (r *EmbeddingRepository) OwnerHash(ctx context.Context, ownerID string) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx,
		`SELECT content_hash FROM embeddings WHERE owner_id = $1 AND chunk_index = $2`,
		ownerID, domain.TitleChunkIndex,
	).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

// ReplaceOwner deletes every embedding row of the owner and inserts the new
// set in one transaction, so a reader never sees a mix of old and new
// chunks.
func (r *EmbeddingRepository) ReplaceOwner(ctx context.Context, ownerID string, embeddings []domain.Embedding) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM embeddings WHERE owner_id = $1`, ownerID); err != nil {
		return err
	}

	for _, e := range embeddings {
		if err := domain.ValidateEmbedding(&e); err != nil {
			return err
		}
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO embeddings (owner_id, chunk_index, content, vector, content_hash, categories, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.OwnerID, e.ChunkIndex, e.Content, pgvector.NewVector(e.Vector), e.ContentHash, e.Categories, createdAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// DocumentIDs lists every document owner with stored embeddings, ordered by
// id so matching pages stay stable across ticks.
func (r *EmbeddingRepository) DocumentIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT (split_part(owner_id, ':', 2))::bigint AS doc_id
		 FROM embeddings WHERE owner_id LIKE 'document:%'
		 ORDER BY doc_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// BodyChunks returns the owner's non-title chunks with vectors and text.
func (r *EmbeddingRepository) BodyChunks(ctx context.Context, ownerID string) ([]domain.Embedding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT owner_id, chunk_index, content, vector, content_hash, created_at
		 FROM embeddings
		 WHERE owner_id = $1 AND chunk_index > $2
		 ORDER BY chunk_index ASC`,
		ownerID, domain.TitleChunkIndex,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEmbeddingRows(rows)
}

// DocumentTargets returns every document title row as a match target, with
// denormalized categories.
func (r *EmbeddingRepository) DocumentTargets(ctx context.Context) ([]domain.DocumentTarget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT owner_id, content, vector, categories
		 FROM embeddings
		 WHERE owner_id LIKE 'document:%' AND chunk_index = $1
		 ORDER BY owner_id ASC`,
		domain.TitleChunkIndex,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []domain.DocumentTarget
	for rows.Next() {
		var ownerID, title string
		var vec pgvector.Vector
		var categories []string
		if err := rows.Scan(&ownerID, &title, &vec, &categories); err != nil {
			return nil, err
		}
		id, err := parseDocumentOwnerID(ownerID)
		if err != nil {
			return nil, err
		}
		targets = append(targets, domain.DocumentTarget{
			ID:         id,
			Title:      title,
			Vector:     vec.Slice(),
			Categories: categories,
		})
	}
	return targets, rows.Err()
}

// DeleteOwner removes every embedding row of an owner.
func (r *EmbeddingRepository) DeleteOwner(ctx context.Context, ownerID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM embeddings WHERE owner_id = $1`, ownerID)
	return err
}

func scanEmbeddingRows(rows pgx.Rows) ([]domain.Embedding, error) {
	var embeddings []domain.Embedding
	for rows.Next() {
		var e domain.Embedding
		var vec pgvector.Vector
		if err := rows.Scan(&e.OwnerID, &e.ChunkIndex, &e.Content, &vec, &e.ContentHash, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Vector = vec.Slice()
		embeddings = append(embeddings, e)
	}
	return embeddings, rows.Err()
}

func parseDocumentOwnerID(ownerID string) (int64, error) {
	raw, ok := strings.CutPrefix(ownerID, "document:")
	if !ok {
		return 0, fmt.Errorf("owner id %q is not a document owner", ownerID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("owner id %q has a malformed document id: %w", ownerID, err)
	}
	return id, nil
}
