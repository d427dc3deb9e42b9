package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tekstlab/interlink/internal/config"
	"github.com/tekstlab/interlink/internal/domain"
	"github.com/tekstlab/interlink/internal/text"
)

// MatchSource is one source document prepared for matching: the document
// itself plus its embedded body chunks.
type MatchSource struct {
	Document *domain.Document
	Chunks   []domain.Embedding
}

// EmitFunc receives each accepted candidate. It returns whether the
// candidate consumed link budget (an enqueue always does; a commit that
// skipped does not).
type EmitFunc func(ctx context.Context, cand domain.LinkCandidate) (bool, error)

// Matcher scores every (source chunk, target) pair, selects anchors, and
// walks the acceptance pipeline for one source document at a time. Pure
// in-memory computation except for store reads and anchor embeddings.
type Matcher struct {
	links     LinkRepository
	blacklist BlacklistRepository
	source    ContentSource
	registry  *ClusterRegistry
	provider  EmbeddingProvider
	selector  *text.AnchorSelector
	settings  config.Settings
	debug     bool
}

// NewMatcher creates a Matcher.
func NewMatcher(
	links LinkRepository,
	blacklist BlacklistRepository,
	source ContentSource,
	registry *ClusterRegistry,
	provider EmbeddingProvider,
	settings config.Settings,
	debug bool,
) *Matcher {
	return &Matcher{
		links:     links,
		blacklist: blacklist,
		source:    source,
		registry:  registry,
		provider:  provider,
		selector: text.NewAnchorSelector(text.AnchorConfig{
			MinWords: settings.MinAnchorWords,
			MaxWords: settings.MaxAnchorWords,
		}),
		settings: settings,
		debug:    debug,
	}
}

type scoredPair struct {
	chunk  domain.Embedding
	target domain.Target
	score  float64
	custom bool
}

// ProcessSource runs the full candidate pipeline for one source document
// against the target map, calling emit for each accepted candidate until
// the source's link budget is exhausted. Returns the number emitted.
func (m *Matcher) ProcessSource(ctx context.Context, src MatchSource, targets []domain.Target, emit EmitFunc) (int, error) {
	if src.Document == nil || len(src.Chunks) == 0 {
		return 0, nil
	}

	active, err := m.links.CountActiveBySource(ctx, src.Document.ID)
	if err != nil {
		return 0, err
	}
	budget := m.settings.MaxLinksPerSource - active
	if budget <= 0 {
		return 0, nil
	}

	pairs := m.rank(src, targets)
	if len(pairs) == 0 {
		return 0, nil
	}

	usedAnchors, err := m.links.ActiveAnchorTexts(ctx, src.Document.ID)
	if err != nil {
		return 0, err
	}

	emitted := 0
	usedTargets := make(map[string]struct{})
	for _, pair := range pairs {
		if budget <= 0 {
			break
		}

		key, targetID, custom := targetKey(pair.target)
		if _, used := usedTargets[key]; used {
			continue
		}

		targetURL, err := m.resolveURL(ctx, pair.target)
		if err != nil {
			return emitted, err
		}
		if targetURL == "" {
			continue
		}

		skip, err := m.checkTargetURL(ctx, src.Document.ID, targetURL)
		if err != nil {
			return emitted, err
		}
		if skip {
			continue
		}

		if m.settings.SameCategoryOnly && !custom {
			doc, ok := pair.target.(domain.DocumentTarget)
			if !ok || !domain.SharesCategory(src.Document.Categories, doc.Categories) {
				continue
			}
		}

		anchor, ok := m.selector.Select(pair.chunk.Content, pair.target.TargetTitle())
		if !ok {
			if m.debug {
				log.Printf("matcher: no anchor for source %d target %q", src.Document.ID, pair.target.TargetTitle())
			}
			continue
		}

		if url, used := usedAnchors[strings.ToLower(anchor)]; used && url != targetURL {
			continue
		}

		if conflict := m.classifyAnchor(ctx, anchor, targetURL); conflict {
			continue
		}

		cand := domain.LinkCandidate{
			SourceID:    src.Document.ID,
			AnchorText:  anchor,
			TargetURL:   targetURL,
			TargetID:    targetID,
			TargetTitle: pair.target.TargetTitle(),
			Score:       pair.score,
			Custom:      custom,
		}
		consumed, err := emit(ctx, cand)
		if err != nil {
			return emitted, err
		}
		if consumed {
			usedTargets[key] = struct{}{}
			usedAnchors[strings.ToLower(anchor)] = targetURL
			budget--
			emitted++
		}
	}
	return emitted, nil
}

// rank computes cosine similarity for every qualifying pair and orders the
// result: custom targets first (user-curated takes priority regardless of
// score), then by score descending.
func (m *Matcher) rank(src MatchSource, targets []domain.Target) []scoredPair {
	var pairs []scoredPair
	for _, t := range targets {
		threshold := m.settings.SimilarityThreshold
		custom := false
		switch target := t.(type) {
		case domain.CustomTarget:
			threshold = m.settings.CustomTargetThreshold
			custom = true
		case domain.DocumentTarget:
			if target.ID == src.Document.ID {
				continue
			}
			if m.settings.IsExcludedID(target.ID) {
				continue
			}
			if m.settings.IsExcludedCategory(target.Categories) {
				continue
			}
		}
		for _, chunk := range src.Chunks {
			score := text.Cosine(chunk.Vector, t.TitleVector())
			if score >= threshold {
				pairs = append(pairs, scoredPair{chunk: chunk, target: t, score: score, custom: custom})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].custom != pairs[j].custom {
			return pairs[i].custom
		}
		return pairs[i].score > pairs[j].score
	})
	return pairs
}

func (m *Matcher) resolveURL(ctx context.Context, target domain.Target) (string, error) {
	switch t := target.(type) {
	case domain.CustomTarget:
		return t.URL, nil
	case domain.DocumentTarget:
		return m.source.ResolvePermalink(ctx, t.ID)
	}
	return "", nil
}

// checkTargetURL applies the per-URL acceptance rules shared by matching
// and commit time: existing active link, blacklist, per-URL cluster cap.
func (m *Matcher) checkTargetURL(ctx context.Context, sourceID int64, targetURL string) (skip bool, err error) {
	exists, err := m.links.HasActive(ctx, sourceID, targetURL)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	blacklisted, err := m.blacklist.Contains(ctx, sourceID, targetURL)
	if err != nil {
		return false, err
	}
	if blacklisted {
		return true, nil
	}

	count, err := m.links.CountActiveByURL(ctx, targetURL)
	if err != nil {
		return false, err
	}
	if count >= m.settings.MaxLinksPerTargetURL {
		return true, nil
	}
	return false, nil
}

// classifyAnchor checks the candidate anchor against the cluster registry,
// embedding it first. When the embedding cannot be obtained the check
// degrades to exact-text dedup; weaker, logged, deliberate.
func (m *Matcher) classifyAnchor(ctx context.Context, anchor, targetURL string) (conflict bool) {
	vec, err := m.embedAnchor(ctx, anchor)
	var c Classification
	if err != nil {
		log.Printf("matcher: anchor embedding unavailable, falling back to exact-text dedup for %q: %v", anchor, err)
		c = m.registry.ClassifyText(anchor, targetURL)
	} else {
		c = m.registry.Classify(vec, targetURL)
	}
	if c.Conflict {
		log.Printf("matcher: semantic conflict: anchor %q for %s already clustered as %q -> %s",
			anchor, targetURL, c.Match.Anchor, c.Match.TargetURL)
		return true
	}
	return false
}

func (m *Matcher) embedAnchor(ctx context.Context, anchor string) ([]float32, error) {
	vectors, err := m.provider.EmbedBatch(ctx, []string{anchor})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Commit applies the final write-time checks against live store state and
// persists the link row. Nothing is silently discarded: candidates failing
// the evaluator are committed with status filtered, and candidates that
// fail a write-time invariant are skipped with the reason logged.
func (m *Matcher) Commit(ctx context.Context, cand domain.LinkCandidate, status domain.LinkStatus) (bool, error) {
	var vec []float32
	if status == domain.LinkStatusActive {
		skip, err := m.checkTargetURL(ctx, cand.SourceID, cand.TargetURL)
		if err != nil {
			return false, err
		}
		if skip {
			return false, nil
		}

		usedAnchors, err := m.links.ActiveAnchorTexts(ctx, cand.SourceID)
		if err != nil {
			return false, err
		}
		if url, used := usedAnchors[strings.ToLower(cand.AnchorText)]; used && url != cand.TargetURL {
			return false, nil
		}

		// Filtered rows never enter the cluster registry, so only active
		// commits pay for the anchor embedding.
		var embedErr error
		vec, embedErr = m.embedAnchor(ctx, cand.AnchorText)
		var c Classification
		if embedErr != nil {
			log.Printf("matcher: anchor embedding unavailable at commit, exact-text dedup for %q: %v", cand.AnchorText, embedErr)
			c = m.registry.ClassifyText(cand.AnchorText, cand.TargetURL)
		} else {
			c = m.registry.Classify(vec, cand.TargetURL)
		}
		if c.Conflict {
			log.Printf("matcher: semantic conflict at commit: anchor %q for %s already clustered as %q -> %s",
				cand.AnchorText, cand.TargetURL, c.Match.Anchor, c.Match.TargetURL)
			return false, nil
		}
	}

	link := domain.NewLink(
		uuid.NewString(),
		cand.SourceID,
		cand.AnchorText,
		cand.TargetURL,
		cand.TargetID,
		cand.Score,
		status,
		time.Now().UTC(),
	)
	if err := m.links.Insert(ctx, link); err != nil {
		log.Printf("matcher: link insert rejected for source %d -> %s: %v", cand.SourceID, cand.TargetURL, err)
		return false, nil
	}

	if status == domain.LinkStatusActive {
		m.registry.Register(cand.AnchorText, vec, cand.TargetURL)
		if m.registry.Truncated() {
			log.Printf("matcher: cluster registry bound reached, new anchors tracked by text only")
		}
	}
	return true, nil
}

func targetKey(t domain.Target) (key string, targetID int64, custom bool) {
	switch target := t.(type) {
	case domain.CustomTarget:
		return "custom:" + target.URL, 0, true
	case domain.DocumentTarget:
		return domain.DocumentOwnerID(target.ID), target.ID, false
	}
	return "", 0, false
}
