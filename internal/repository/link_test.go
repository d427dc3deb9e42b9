//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tekstlab/interlink/internal/domain"
	"github.com/tekstlab/interlink/internal/pagination"
	"github.com/tekstlab/interlink/internal/testutil"
)

func newLink(sourceID int64, targetURL string, status domain.LinkStatus) *domain.Link {
	return domain.NewLink(
		uuid.NewString(),
		sourceID,
		"kredyt hipoteczny",
		targetURL,
		0,
		0.82,
		status,
		time.Now().UTC().Truncate(time.Microsecond),
	)
}

func TestLinkRepository_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewLinkRepository(pool)

	link := newLink(1, "https://example.pl/kredyt-hipoteczny", domain.LinkStatusActive)
	require.NoError(t, repo.Insert(ctx, link))

	got, err := repo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)
	assert.Equal(t, link.SourceID, got.SourceID)
	assert.Equal(t, link.AnchorText, got.AnchorText)
	assert.Equal(t, link.TargetURL, got.TargetURL)
	assert.Equal(t, link.Score, got.Score)
	assert.Equal(t, domain.LinkStatusActive, got.Status)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)

	invalid := newLink(1, "https://example.pl/inny", domain.LinkStatusActive)
	invalid.AnchorText = ""
	err = repo.Insert(ctx, invalid)
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeValidation, de.Code)
}

func TestLinkRepository_ActiveUniqueness(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewLinkRepository(pool)
	url := "https://example.pl/kredyt-hipoteczny"

	require.NoError(t, repo.Insert(ctx, newLink(1, url, domain.LinkStatusActive)))

	// A second active link for the same source and URL hits the partial
	// unique index.
	err := repo.Insert(ctx, newLink(1, url, domain.LinkStatusActive))
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeAlreadyExists, de.Code)

	// Non-active rows are not constrained.
	require.NoError(t, repo.Insert(ctx, newLink(1, url, domain.LinkStatusFiltered)))
	// Neither is a different source.
	require.NoError(t, repo.Insert(ctx, newLink(2, url, domain.LinkStatusActive)))
}

func TestLinkRepository_ListFiltersAndPagination(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewLinkRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond).Add(-time.Hour)
	for i := 0; i < 5; i++ {
		link := newLink(1, "https://example.pl/artykul-"+uuid.NewString(), domain.LinkStatusActive)
		link.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Insert(ctx, link))
	}
	rejected := newLink(2, "https://example.pl/odrzucony", domain.LinkStatusRejected)
	require.NoError(t, repo.Insert(ctx, rejected))

	all, err := repo.List(ctx, "", 0, 50, nil)
	require.NoError(t, err)
	assert.Len(t, all, 6)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt), "newest first")
	}

	active, err := repo.List(ctx, domain.LinkStatusActive, 0, 50, nil)
	require.NoError(t, err)
	assert.Len(t, active, 5)

	bySource, err := repo.List(ctx, "", 2, 50, nil)
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, rejected.ID, bySource[0].ID)

	// Cursor pages resume after the last seen row without overlap.
	first, err := repo.List(ctx, domain.LinkStatusActive, 0, 2, nil)
	require.NoError(t, err)
	require.Len(t, first, 2)

	cursor := &pagination.Cursor{LastID: first[1].ID, Timestamp: first[1].CreatedAt}
	rest, err := repo.List(ctx, domain.LinkStatusActive, 0, 50, cursor)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
	for _, l := range rest {
		assert.NotEqual(t, first[0].ID, l.ID)
		assert.NotEqual(t, first[1].ID, l.ID)
	}
}

func TestLinkRepository_RejectAndRestore(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewLinkRepository(pool)
	blacklist := NewBlacklistRepository(pool)
	url := "https://example.pl/kredyt-hipoteczny"

	link := newLink(1, url, domain.LinkStatusActive)
	require.NoError(t, repo.Insert(ctx, link))

	require.NoError(t, repo.Reject(ctx, link.ID))

	got, err := repo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LinkStatusRejected, got.Status)

	blocked, err := blacklist.Contains(ctx, 1, url)
	require.NoError(t, err)
	assert.True(t, blocked, "rejection blacklists the pair in the same transaction")

	require.NoError(t, repo.Restore(ctx, link.ID))

	got, err = repo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LinkStatusActive, got.Status)

	blocked, err = blacklist.Contains(ctx, 1, url)
	require.NoError(t, err)
	assert.False(t, blocked, "restore clears the blacklist entry")

	assert.ErrorIs(t, repo.Reject(ctx, uuid.NewString()), domain.ErrLinkNotFound)
	// Restore only applies to rejected links.
	assert.ErrorIs(t, repo.Restore(ctx, link.ID), domain.ErrLinkNotFound)
}

func TestLinkRepository_RestoreBlockedByNewerActiveLink(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewLinkRepository(pool)
	url := "https://example.pl/kredyt-hipoteczny"

	old := newLink(1, url, domain.LinkStatusActive)
	require.NoError(t, repo.Insert(ctx, old))
	require.NoError(t, repo.Reject(ctx, old.ID))

	replacement := newLink(1, url, domain.LinkStatusActive)
	replacement.AnchorText = "kredyt na mieszkanie"
	require.NoError(t, repo.Insert(ctx, replacement))

	err := repo.Restore(ctx, old.ID)
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeAlreadyExists, de.Code)

	got, err := repo.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LinkStatusRejected, got.Status, "failed restore leaves the row rejected")
}

func TestLinkRepository_CountsAndAnchors(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewLinkRepository(pool)
	url := "https://example.pl/kredyt-hipoteczny"

	a := newLink(1, url, domain.LinkStatusActive)
	a.AnchorText = "Kredyt Hipoteczny"
	require.NoError(t, repo.Insert(ctx, a))

	b := newLink(2, url, domain.LinkStatusActive)
	require.NoError(t, repo.Insert(ctx, b))

	c := newLink(1, "https://example.pl/kalkulator", domain.LinkStatusFiltered)
	require.NoError(t, repo.Insert(ctx, c))

	has, err := repo.HasActive(ctx, 1, url)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasActive(ctx, 1, "https://example.pl/kalkulator")
	require.NoError(t, err)
	assert.False(t, has, "filtered links do not count as active")

	n, err := repo.CountActiveBySource(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.CountActiveByURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	anchors, err := repo.ActiveAnchors(ctx)
	require.NoError(t, err)
	assert.Len(t, anchors, 2)

	texts, err := repo.ActiveAnchorTexts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"kredyt hipoteczny": url}, texts, "anchor keys are lowercased")
}
