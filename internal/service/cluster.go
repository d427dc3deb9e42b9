package service

import (
	"strings"

	"github.com/tekstlab/interlink/internal/domain"
	"github.com/tekstlab/interlink/internal/text"
)

// Classification is the registry's verdict on a candidate anchor.
type Classification struct {
	// Match is the best cluster above the threshold, nil when none.
	Match *domain.AnchorCluster
	// Conflict is true when the matched cluster points at a different URL
	// than the candidate intends: the same phrase-meaning already links
	// elsewhere, so the candidate must be rejected.
	Conflict bool
}

// ClusterRegistry maintains the semantic equivalence classes of committed
// anchor phrases, enforcing one anchor-meaning to one target URL site-wide.
// It is seeded from active links at run start and grown in memory during the
// run; the link store provides all cross-run consistency.
type ClusterRegistry struct {
	threshold float64
	max       int
	clusters  []domain.AnchorCluster
	// byText backs the exact-text fallback used when an anchor could not be
	// embedded. Weaker than vector matching (misses morphological
	// variants), and an accepted, explicit tradeoff.
	byText    map[string]string
	truncated bool
}

// NewClusterRegistry creates an empty registry. max bounds the in-memory
// cluster count for one run; 0 means unbounded.
func NewClusterRegistry(threshold float64, max int) *ClusterRegistry {
	return &ClusterRegistry{
		threshold: threshold,
		max:       max,
		byText:    make(map[string]string),
	}
}

// Seed loads clusters built from already-active links.
func (r *ClusterRegistry) Seed(clusters []domain.AnchorCluster) {
	for _, c := range clusters {
		r.Register(c.Anchor, c.Vector, c.TargetURL)
	}
}

// SeedTexts loads only the exact-text index, for runs where the seed anchors
// could not be embedded.
func (r *ClusterRegistry) SeedTexts(anchors []ActiveAnchor) {
	for _, a := range anchors {
		r.byText[strings.ToLower(a.Anchor)] = a.TargetURL
	}
}

// Classify compares the candidate anchor's embedding against every cluster
// representative; the highest similarity above the threshold wins.
func (r *ClusterRegistry) Classify(vec []float32, intendedURL string) Classification {
	if len(vec) == 0 {
		return Classification{}
	}
	var best *domain.AnchorCluster
	bestScore := r.threshold
	for i := range r.clusters {
		score := text.Cosine(vec, r.clusters[i].Vector)
		if score >= bestScore {
			bestScore = score
			best = &r.clusters[i]
		}
	}
	if best == nil {
		return Classification{}
	}
	return Classification{Match: best, Conflict: best.TargetURL != intendedURL}
}

// ClassifyText is the degraded exact-text (case-insensitive) fallback for
// anchors without an embedding.
func (r *ClusterRegistry) ClassifyText(anchor, intendedURL string) Classification {
	url, ok := r.byText[strings.ToLower(anchor)]
	if !ok {
		return Classification{}
	}
	cluster := &domain.AnchorCluster{Anchor: anchor, TargetURL: url}
	return Classification{Match: cluster, Conflict: url != intendedURL}
}

// Register records an accepted anchor. A meaning already represented for the
// same URL is not duplicated; the bound caps memory growth during a run and
// truncation is reported through Truncated.
func (r *ClusterRegistry) Register(anchor string, vec []float32, targetURL string) {
	r.byText[strings.ToLower(anchor)] = targetURL

	if len(vec) == 0 {
		return
	}
	if c := r.Classify(vec, targetURL); c.Match != nil && !c.Conflict {
		return
	}
	if r.max > 0 && len(r.clusters) >= r.max {
		r.truncated = true
		return
	}
	r.clusters = append(r.clusters, domain.AnchorCluster{
		Anchor:    anchor,
		Vector:    vec,
		TargetURL: targetURL,
	})
}

// KnownText reports whether an anchor text is already tracked, used to
// avoid re-embedding seed anchors the registry has seen.
func (r *ClusterRegistry) KnownText(anchor string) bool {
	_, ok := r.byText[strings.ToLower(anchor)]
	return ok
}

// Len returns the number of cluster entries.
func (r *ClusterRegistry) Len() int {
	return len(r.clusters)
}

// Truncated reports whether the cluster bound was hit during this run.
func (r *ClusterRegistry) Truncated() bool {
	return r.truncated
}
