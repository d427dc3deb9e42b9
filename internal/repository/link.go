package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tekstlab/interlink/internal/domain"
	"github.com/tekstlab/interlink/internal/pagination"
	"github.com/tekstlab/interlink/internal/service"
)

// LinkRepository is the durable store of link proposals and their review
// status. Write-time invariants (one active link per source and URL, valid
// status enum) are enforced here and by the schema's partial unique index.
type LinkRepository struct {
	pool *pgxpool.Pool
}

func NewLinkRepository(pool *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{pool: pool}
}

// Insert persists a link row. Validation failures and constraint conflicts
// reject the insert outright; no partial write happens.
func (r *LinkRepository) Insert(ctx context.Context, link *domain.Link) error {
	if err := domain.ValidateLink(link); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid link", err)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO links (id, source_id, anchor_text, target_url, target_id, score, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		link.ID, link.SourceID, link.AnchorText, link.TargetURL, link.TargetID, link.Score, link.Status, link.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.NewDomainErrorWithCause(domain.ErrCodeAlreadyExists,
				"an active link for this source and target URL already exists", err)
		}
		return err
	}
	return nil
}

func (r *LinkRepository) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	var link domain.Link
	err := r.pool.QueryRow(ctx,
		`SELECT id, source_id, anchor_text, target_url, target_id, score, status, created_at
		 FROM links WHERE id = $1`,
		id,
	).Scan(&link.ID, &link.SourceID, &link.AnchorText, &link.TargetURL, &link.TargetID, &link.Score, &link.Status, &link.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// List returns links filtered by optional status and source, newest first.
// A non-nil cursor resumes after the given (created_at, id) position.
func (r *LinkRepository) List(ctx context.Context, status domain.LinkStatus, sourceID int64, limit int, cursor *pagination.Cursor) ([]*domain.Link, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, source_id, anchor_text, target_url, target_id, score, status, created_at FROM links`
	var conditions []string
	var args []any
	if status != "" {
		args = append(args, status)
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if sourceID > 0 {
		args = append(args, sourceID)
		conditions = append(conditions, "source_id = $"+strconv.Itoa(len(args)))
	}
	if cursor != nil {
		args = append(args, cursor.Timestamp)
		tsArg := strconv.Itoa(len(args))
		args = append(args, cursor.LastID)
		idArg := strconv.Itoa(len(args))
		conditions = append(conditions, "(created_at, id) < ($"+tsArg+"::timestamptz, $"+idArg+"::uuid)")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)
	query += " ORDER BY created_at DESC, id DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*domain.Link
	for rows.Next() {
		var link domain.Link
		if err := rows.Scan(&link.ID, &link.SourceID, &link.AnchorText, &link.TargetURL, &link.TargetID, &link.Score, &link.Status, &link.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, &link)
	}
	return links, rows.Err()
}

func (r *LinkRepository) HasActive(ctx context.Context, sourceID int64, targetURL string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM links WHERE source_id = $1 AND target_url = $2 AND status = $3)`,
		sourceID, targetURL, domain.LinkStatusActive,
	).Scan(&exists)
	return exists, err
}

func (r *LinkRepository) CountActiveBySource(ctx context.Context, sourceID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM links WHERE source_id = $1 AND status = $2`,
		sourceID, domain.LinkStatusActive,
	).Scan(&count)
	return count, err
}

func (r *LinkRepository) CountActiveByURL(ctx context.Context, targetURL string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM links WHERE target_url = $1 AND status = $2`,
		targetURL, domain.LinkStatusActive,
	).Scan(&count)
	return count, err
}

// ActiveAnchors returns every distinct (anchor, target URL) pair across
// active links, the seed material for the cluster registry.
func (r *LinkRepository) ActiveAnchors(ctx context.Context) ([]service.ActiveAnchor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT anchor_text, target_url FROM links WHERE status = $1`,
		domain.LinkStatusActive,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anchors []service.ActiveAnchor
	for rows.Next() {
		var a service.ActiveAnchor
		if err := rows.Scan(&a.Anchor, &a.TargetURL); err != nil {
			return nil, err
		}
		anchors = append(anchors, a)
	}
	return anchors, rows.Err()
}

// ActiveAnchorTexts returns one source's active anchors, lowercased anchor
// text mapped to target URL.
func (r *LinkRepository) ActiveAnchorTexts(ctx context.Context, sourceID int64) (map[string]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT LOWER(anchor_text), target_url FROM links WHERE source_id = $1 AND status = $2`,
		sourceID, domain.LinkStatusActive,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	anchors := make(map[string]string)
	for rows.Next() {
		var anchor, url string
		if err := rows.Scan(&anchor, &url); err != nil {
			return nil, err
		}
		anchors[anchor] = url
	}
	return anchors, rows.Err()
}

// Reject marks a link rejected and blacklists its (source, target URL)
// pair in the same transaction. Rejecting one phrase suppresses the whole
// URL for that source; the anchor is kept on the blacklist row for audit.
func (r *LinkRepository) Reject(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var link domain.Link
	err = tx.QueryRow(ctx,
		`UPDATE links SET status = $1 WHERE id = $2
		 RETURNING id, source_id, anchor_text, target_url`,
		domain.LinkStatusRejected, id,
	).Scan(&link.ID, &link.SourceID, &link.AnchorText, &link.TargetURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrLinkNotFound
	}
	if err != nil {
		return err
	}

	if err := insertBlacklistRow(ctx, tx, link.SourceID, link.TargetURL, link.AnchorText, time.Now().UTC()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Restore reactivates a rejected link and clears its blacklist entry. The
// partial unique index blocks the restore when another active link for the
// same source and URL appeared in the meantime.
func (r *LinkRepository) Restore(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var link domain.Link
	err = tx.QueryRow(ctx,
		`UPDATE links SET status = $1 WHERE id = $2 AND status = $3
		 RETURNING id, source_id, target_url`,
		domain.LinkStatusActive, id, domain.LinkStatusRejected,
	).Scan(&link.ID, &link.SourceID, &link.TargetURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrLinkNotFound
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.NewDomainErrorWithCause(domain.ErrCodeAlreadyExists,
				"an active link for this source and target URL already exists", err)
		}
		return err
	}

	if err := deleteBlacklistRow(ctx, tx, link.SourceID, link.TargetURL); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
