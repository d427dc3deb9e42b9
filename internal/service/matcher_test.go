package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tekstlab/interlink/internal/config"
	"github.com/tekstlab/interlink/internal/domain"
)

const (
	mortgageURL = "https://example.pl/kredyt-hipoteczny"
	otherURL    = "https://example.pl/inny-artykul"
)

func matcherSettings() config.Settings {
	return config.Settings{
		SimilarityThreshold:   0.75,
		CustomTargetThreshold: 0.65,
		ClusterThreshold:      0.75,
		MaxLinksPerSource:     3,
		MaxLinksPerTargetURL:  5,
		MinAnchorWords:        2,
		MaxAnchorWords:        6,
	}
}

func mortgageSource() MatchSource {
	return MatchSource{
		Document: &domain.Document{
			ID:         1,
			Title:      "Jak wybrać kredyt hipoteczny",
			Categories: []string{"finanse"},
		},
		Chunks: []domain.Embedding{
			{
				OwnerID:    domain.DocumentOwnerID(1),
				ChunkIndex: 1,
				Content:    "Rozważ kredyt hipoteczny w dobrym banku",
				Vector:     vec(0, 1),
			},
		},
	}
}

func mortgageTarget() domain.DocumentTarget {
	return domain.DocumentTarget{
		ID:         2,
		Title:      "Kredyt hipoteczny krok po kroku",
		Vector:     vec(0, 1),
		Categories: []string{"finanse"},
	}
}

type matcherMocks struct {
	links     *MockLinkRepository
	blacklist *MockBlacklistRepository
	source    *MockContentSource
	provider  *MockEmbeddingProvider
	registry  *ClusterRegistry
}

func newMatcherForTest(t *testing.T, settings config.Settings) (*Matcher, *matcherMocks) {
	t.Helper()
	m := &matcherMocks{
		links:     new(MockLinkRepository),
		blacklist: new(MockBlacklistRepository),
		source:    new(MockContentSource),
		provider:  new(MockEmbeddingProvider),
		registry:  NewClusterRegistry(settings.ClusterThreshold, 100),
	}
	matcher := NewMatcher(m.links, m.blacklist, m.source, m.registry, m.provider, settings, false)
	return matcher, m
}

func collectEmit(emitted *[]domain.LinkCandidate) EmitFunc {
	return func(_ context.Context, cand domain.LinkCandidate) (bool, error) {
		*emitted = append(*emitted, cand)
		return true, nil
	}
}

func TestMatcher_ProcessSource_EmitsCandidate(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	m.links.On("CountActiveBySource", mock.Anything, int64(1)).Return(0, nil)
	m.links.On("ActiveAnchorTexts", mock.Anything, int64(1)).Return(map[string]string{}, nil)
	m.source.On("ResolvePermalink", mock.Anything, int64(2)).Return(mortgageURL, nil)
	m.links.On("HasActive", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.blacklist.On("Contains", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.links.On("CountActiveByURL", mock.Anything, mortgageURL).Return(0, nil)
	m.provider.On("EmbedBatch", mock.Anything, []string{"kredyt hipoteczny"}).Return([][]float32{vec(0, 1)}, nil)

	var emitted []domain.LinkCandidate
	n, err := matcher.ProcessSource(context.Background(), mortgageSource(), []domain.Target{mortgageTarget()}, collectEmit(&emitted))

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, emitted, 1)

	cand := emitted[0]
	assert.Equal(t, int64(1), cand.SourceID)
	assert.Equal(t, "kredyt hipoteczny", cand.AnchorText)
	assert.Equal(t, mortgageURL, cand.TargetURL)
	assert.Equal(t, int64(2), cand.TargetID)
	assert.Equal(t, "Kredyt hipoteczny krok po kroku", cand.TargetTitle)
	assert.InDelta(t, 1.0, cand.Score, 1e-6)
	assert.False(t, cand.Custom)
}

func TestMatcher_ProcessSource_NoChunks(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	n, err := matcher.ProcessSource(context.Background(), MatchSource{}, []domain.Target{mortgageTarget()}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	m.links.AssertNotCalled(t, "CountActiveBySource", mock.Anything, mock.Anything)
}

func TestMatcher_ProcessSource_BudgetExhausted(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	m.links.On("CountActiveBySource", mock.Anything, int64(1)).Return(3, nil)

	n, err := matcher.ProcessSource(context.Background(), mortgageSource(), []domain.Target{mortgageTarget()}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	m.links.AssertNotCalled(t, "ActiveAnchorTexts", mock.Anything, mock.Anything)
}

func TestMatcher_ProcessSource_BelowThreshold(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	m.links.On("CountActiveBySource", mock.Anything, int64(1)).Return(0, nil)

	dissimilar := mortgageTarget()
	dissimilar.Vector = vec(5)

	n, err := matcher.ProcessSource(context.Background(), mortgageSource(), []domain.Target{dissimilar}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	m.source.AssertNotCalled(t, "ResolvePermalink", mock.Anything, mock.Anything)
}

func TestMatcher_ProcessSource_SkipsSelf(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	m.links.On("CountActiveBySource", mock.Anything, int64(1)).Return(0, nil)

	self := mortgageTarget()
	self.ID = 1

	n, err := matcher.ProcessSource(context.Background(), mortgageSource(), []domain.Target{self}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMatcher_ProcessSource_BlacklistedURL(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	m.links.On("CountActiveBySource", mock.Anything, int64(1)).Return(0, nil)
	m.links.On("ActiveAnchorTexts", mock.Anything, int64(1)).Return(map[string]string{}, nil)
	m.source.On("ResolvePermalink", mock.Anything, int64(2)).Return(mortgageURL, nil)
	m.links.On("HasActive", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.blacklist.On("Contains", mock.Anything, int64(1), mortgageURL).Return(true, nil)

	var emitted []domain.LinkCandidate
	n, err := matcher.ProcessSource(context.Background(), mortgageSource(), []domain.Target{mortgageTarget()}, collectEmit(&emitted))

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, emitted)
}

func TestMatcher_ProcessSource_ExistingActiveLink(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	m.links.On("CountActiveBySource", mock.Anything, int64(1)).Return(0, nil)
	m.links.On("ActiveAnchorTexts", mock.Anything, int64(1)).Return(map[string]string{}, nil)
	m.source.On("ResolvePermalink", mock.Anything, int64(2)).Return(mortgageURL, nil)
	m.links.On("HasActive", mock.Anything, int64(1), mortgageURL).Return(true, nil)

	var emitted []domain.LinkCandidate
	n, err := matcher.ProcessSource(context.Background(), mortgageSource(), []domain.Target{mortgageTarget()}, collectEmit(&emitted))

	require.NoError(t, err)
	assert.Zero(t, n)
	m.blacklist.AssertNotCalled(t, "Contains", mock.Anything, mock.Anything, mock.Anything)
}

func TestMatcher_ProcessSource_TargetURLSaturated(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	m.links.On("CountActiveBySource", mock.Anything, int64(1)).Return(0, nil)
	m.links.On("ActiveAnchorTexts", mock.Anything, int64(1)).Return(map[string]string{}, nil)
	m.source.On("ResolvePermalink", mock.Anything, int64(2)).Return(mortgageURL, nil)
	m.links.On("HasActive", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.blacklist.On("Contains", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.links.On("CountActiveByURL", mock.Anything, mortgageURL).Return(5, nil)

	var emitted []domain.LinkCandidate
	n, err := matcher.ProcessSource(context.Background(), mortgageSource(), []domain.Target{mortgageTarget()}, collectEmit(&emitted))

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, emitted)
}

func TestMatcher_ProcessSource_UnpublishedTargetSkipped(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	m.links.On("CountActiveBySource", mock.Anything, int64(1)).Return(0, nil)
	m.links.On("ActiveAnchorTexts", mock.Anything, int64(1)).Return(map[string]string{}, nil)
	m.source.On("ResolvePermalink", mock.Anything, int64(2)).Return("", nil)

	var emitted []domain.LinkCandidate
	n, err := matcher.ProcessSource(context.Background(), mortgageSource(), []domain.Target{mortgageTarget()}, collectEmit(&emitted))

	require.NoError(t, err)
	assert.Zero(t, n)
	m.links.AssertNotCalled(t, "HasActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestMatcher_ProcessSource_CategoryGate(t *testing.T) {
	settings := matcherSettings()
	settings.SameCategoryOnly = true
	matcher, m := newMatcherForTest(t, settings)

	m.links.On("CountActiveBySource", mock.Anything, int64(1)).Return(0, nil)
	m.links.On("ActiveAnchorTexts", mock.Anything, int64(1)).Return(map[string]string{}, nil)
	m.source.On("ResolvePermalink", mock.Anything, int64(2)).Return(mortgageURL, nil)
	m.links.On("HasActive", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.blacklist.On("Contains", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.links.On("CountActiveByURL", mock.Anything, mortgageURL).Return(0, nil)

	foreign := mortgageTarget()
	foreign.Categories = []string{"kuchnia"}

	var emitted []domain.LinkCandidate
	n, err := matcher.ProcessSource(context.Background(), mortgageSource(), []domain.Target{foreign}, collectEmit(&emitted))

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, emitted)
}

func TestMatcher_ProcessSource_CustomTargetBypassesCategoryGate(t *testing.T) {
	settings := matcherSettings()
	settings.SameCategoryOnly = true
	matcher, m := newMatcherForTest(t, settings)

	src := mortgageSource()
	src.Chunks[0].Content = "Dobry kalkulator kredytowy pomoże ocenić ratę"
	src.Chunks[0].Vector = vec(0, 2)

	custom := domain.CustomTarget{
		ID:     100,
		Title:  "Kalkulator kredytowy",
		URL:    "https://example.pl/kalkulator",
		Vector: vec(0, 2),
	}

	m.links.On("CountActiveBySource", mock.Anything, int64(1)).Return(0, nil)
	m.links.On("ActiveAnchorTexts", mock.Anything, int64(1)).Return(map[string]string{}, nil)
	m.links.On("HasActive", mock.Anything, int64(1), custom.URL).Return(false, nil)
	m.blacklist.On("Contains", mock.Anything, int64(1), custom.URL).Return(false, nil)
	m.links.On("CountActiveByURL", mock.Anything, custom.URL).Return(0, nil)
	m.provider.On("EmbedBatch", mock.Anything, []string{"kalkulator kredytowy"}).Return([][]float32{vec(0, 2)}, nil)

	var emitted []domain.LinkCandidate
	n, err := matcher.ProcessSource(context.Background(), src, []domain.Target{custom}, collectEmit(&emitted))

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, emitted, 1)
	assert.True(t, emitted[0].Custom)
	assert.Equal(t, custom.URL, emitted[0].TargetURL)
	// Custom target URLs come from curation, never from the content source.
	m.source.AssertNotCalled(t, "ResolvePermalink", mock.Anything, mock.Anything)
}

func TestMatcher_ProcessSource_SemanticConflictDropped(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	// The same meaning already links somewhere else.
	m.registry.Register("kredyt hipoteczny", vec(0, 1), otherURL)

	m.links.On("CountActiveBySource", mock.Anything, int64(1)).Return(0, nil)
	m.links.On("ActiveAnchorTexts", mock.Anything, int64(1)).Return(map[string]string{}, nil)
	m.source.On("ResolvePermalink", mock.Anything, int64(2)).Return(mortgageURL, nil)
	m.links.On("HasActive", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.blacklist.On("Contains", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.links.On("CountActiveByURL", mock.Anything, mortgageURL).Return(0, nil)
	m.provider.On("EmbedBatch", mock.Anything, []string{"kredyt hipoteczny"}).Return([][]float32{vec(0, 1)}, nil)

	var emitted []domain.LinkCandidate
	n, err := matcher.ProcessSource(context.Background(), mortgageSource(), []domain.Target{mortgageTarget()}, collectEmit(&emitted))

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, emitted)
}

func TestMatcher_ProcessSource_AnchorAlreadyUsedForOtherURL(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	m.links.On("CountActiveBySource", mock.Anything, int64(1)).Return(0, nil)
	m.links.On("ActiveAnchorTexts", mock.Anything, int64(1)).
		Return(map[string]string{"kredyt hipoteczny": otherURL}, nil)
	m.source.On("ResolvePermalink", mock.Anything, int64(2)).Return(mortgageURL, nil)
	m.links.On("HasActive", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.blacklist.On("Contains", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.links.On("CountActiveByURL", mock.Anything, mortgageURL).Return(0, nil)

	var emitted []domain.LinkCandidate
	n, err := matcher.ProcessSource(context.Background(), mortgageSource(), []domain.Target{mortgageTarget()}, collectEmit(&emitted))

	require.NoError(t, err)
	assert.Zero(t, n)
	m.provider.AssertNotCalled(t, "EmbedBatch", mock.Anything, mock.Anything)
}

func TestMatcher_ProcessSource_EmbeddingFailureFallsBackToText(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	// Exact-text dedup still catches a known anchor pointing elsewhere.
	m.registry.SeedTexts([]ActiveAnchor{{Anchor: "kredyt hipoteczny", TargetURL: otherURL}})

	m.links.On("CountActiveBySource", mock.Anything, int64(1)).Return(0, nil)
	m.links.On("ActiveAnchorTexts", mock.Anything, int64(1)).Return(map[string]string{}, nil)
	m.source.On("ResolvePermalink", mock.Anything, int64(2)).Return(mortgageURL, nil)
	m.links.On("HasActive", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.blacklist.On("Contains", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.links.On("CountActiveByURL", mock.Anything, mortgageURL).Return(0, nil)
	m.provider.On("EmbedBatch", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	var emitted []domain.LinkCandidate
	n, err := matcher.ProcessSource(context.Background(), mortgageSource(), []domain.Target{mortgageTarget()}, collectEmit(&emitted))

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMatcher_Commit_Active(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	cand := domain.LinkCandidate{
		SourceID:   1,
		AnchorText: "kredyt hipoteczny",
		TargetURL:  mortgageURL,
		TargetID:   2,
		Score:      0.91,
	}

	m.links.On("HasActive", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.blacklist.On("Contains", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.links.On("CountActiveByURL", mock.Anything, mortgageURL).Return(0, nil)
	m.links.On("ActiveAnchorTexts", mock.Anything, int64(1)).Return(map[string]string{}, nil)
	m.provider.On("EmbedBatch", mock.Anything, []string{"kredyt hipoteczny"}).Return([][]float32{vec(0, 1)}, nil)
	m.links.On("Insert", mock.Anything, mock.MatchedBy(func(l *domain.Link) bool {
		return l.SourceID == 1 &&
			l.AnchorText == "kredyt hipoteczny" &&
			l.TargetURL == mortgageURL &&
			l.Status == domain.LinkStatusActive
	})).Return(nil)

	committed, err := matcher.Commit(context.Background(), cand, domain.LinkStatusActive)

	require.NoError(t, err)
	assert.True(t, committed)
	assert.Equal(t, 1, m.registry.Len())
}

func TestMatcher_Commit_Filtered(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	cand := domain.LinkCandidate{
		SourceID:   1,
		AnchorText: "kredyt hipoteczny",
		TargetURL:  mortgageURL,
		Score:      0.80,
	}

	m.links.On("Insert", mock.Anything, mock.MatchedBy(func(l *domain.Link) bool {
		return l.Status == domain.LinkStatusFiltered
	})).Return(nil)

	committed, err := matcher.Commit(context.Background(), cand, domain.LinkStatusFiltered)

	require.NoError(t, err)
	assert.True(t, committed)
	// Filtered links neither pass write-time gates nor claim a cluster, so
	// no anchor embedding is fetched for them either.
	m.links.AssertNotCalled(t, "HasActive", mock.Anything, mock.Anything, mock.Anything)
	m.provider.AssertNotCalled(t, "EmbedBatch", mock.Anything, mock.Anything)
	assert.Equal(t, 0, m.registry.Len())
}

func TestMatcher_Commit_DuplicateInsertSkipped(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	cand := domain.LinkCandidate{
		SourceID:   1,
		AnchorText: "kredyt hipoteczny",
		TargetURL:  mortgageURL,
		Score:      0.85,
	}

	m.links.On("HasActive", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.blacklist.On("Contains", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.links.On("CountActiveByURL", mock.Anything, mortgageURL).Return(0, nil)
	m.links.On("ActiveAnchorTexts", mock.Anything, int64(1)).Return(map[string]string{}, nil)
	m.provider.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{vec(0, 1)}, nil)
	m.links.On("Insert", mock.Anything, mock.Anything).
		Return(domain.NewDomainError(domain.ErrCodeAlreadyExists, "duplicate link"))

	committed, err := matcher.Commit(context.Background(), cand, domain.LinkStatusActive)

	require.NoError(t, err)
	assert.False(t, committed)
	assert.Equal(t, 0, m.registry.Len())
}

func TestMatcher_Commit_ConflictAtCommitTime(t *testing.T) {
	matcher, m := newMatcherForTest(t, matcherSettings())

	m.registry.Register("kredyt hipoteczny", vec(0, 1), otherURL)

	cand := domain.LinkCandidate{
		SourceID:   1,
		AnchorText: "kredyt mieszkaniowy",
		TargetURL:  mortgageURL,
		Score:      0.85,
	}

	m.links.On("HasActive", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.blacklist.On("Contains", mock.Anything, int64(1), mortgageURL).Return(false, nil)
	m.links.On("CountActiveByURL", mock.Anything, mortgageURL).Return(0, nil)
	m.links.On("ActiveAnchorTexts", mock.Anything, int64(1)).Return(map[string]string{}, nil)
	m.provider.On("EmbedBatch", mock.Anything, []string{"kredyt mieszkaniowy"}).Return([][]float32{vec(0, 1)}, nil)

	committed, err := matcher.Commit(context.Background(), cand, domain.LinkStatusActive)

	require.NoError(t, err)
	assert.False(t, committed)
	m.links.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}
