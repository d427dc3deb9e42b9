package service

import (
	"context"

	"github.com/tekstlab/interlink/internal/domain"
)

// ContentSource supplies documents from the external content system. The
// matching core never mutates content; it only reads it here.
type ContentSource interface {
	// ListCandidateDocuments returns a stable, id-ordered page of documents
	// eligible for linking.
	ListCandidateDocuments(ctx context.Context, limit, offset int) ([]domain.DocumentRef, error)
	// GetContent returns the full document.
	GetContent(ctx context.Context, id int64) (*domain.Document, error)
	// ResolvePermalink returns the public URL of a document, or "" when the
	// document has none (unpublished, deleted).
	ResolvePermalink(ctx context.Context, id int64) (string, error)
}

// EmbeddingProvider turns texts into fixed-dimension vectors. Batched,
// rate-limited, fallible; rate limiting surfaces as *domain.RateLimitError.
type EmbeddingProvider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ContextualEvaluator is the optional secondary filter. Implementations
// fail open: on any transport or parse error they return pass=true with the
// error surfaced for operator visibility.
type ContextualEvaluator interface {
	Evaluate(ctx context.Context, anchor, targetTitle string) (bool, error)
}

// EmbeddingRepository persists one vector per (owner, chunk index), keyed by
// content hash for staleness detection.
type EmbeddingRepository interface {
	// OwnerHash returns the stored content hash for an owner, or "" when the
	// owner has no embeddings yet.
	OwnerHash(ctx context.Context, ownerID string) (string, error)
	// ReplaceOwner atomically swaps all embedding rows for an owner
	// (delete-then-insert) so stale fragments never linger.
	ReplaceOwner(ctx context.Context, ownerID string, embeddings []domain.Embedding) error
	// DocumentIDs lists every document with stored embeddings, ordered by id
	// so resuming never reorders work.
	DocumentIDs(ctx context.Context) ([]int64, error)
	// BodyChunks returns the non-title chunks of an owner, vectors included.
	BodyChunks(ctx context.Context, ownerID string) ([]domain.Embedding, error)
	// DocumentTargets returns every document's title row as a match target.
	DocumentTargets(ctx context.Context) ([]domain.DocumentTarget, error)
}

// CustomTargetRepository lists externally curated match targets. Vectors are
// joined in from the embedding store when present.
type CustomTargetRepository interface {
	List(ctx context.Context) ([]domain.CustomTarget, error)
}

// ActiveAnchor is one committed anchor with its target, used to seed the
// cluster registry at run start.
type ActiveAnchor struct {
	Anchor    string
	TargetURL string
}

// LinkRepository is the durable store of link proposals.
type LinkRepository interface {
	Insert(ctx context.Context, link *domain.Link) error
	HasActive(ctx context.Context, sourceID int64, targetURL string) (bool, error)
	CountActiveBySource(ctx context.Context, sourceID int64) (int, error)
	CountActiveByURL(ctx context.Context, targetURL string) (int, error)
	// ActiveAnchors returns every distinct (anchor, target URL) pair across
	// active links.
	ActiveAnchors(ctx context.Context) ([]ActiveAnchor, error)
	// ActiveAnchorTexts returns the active anchors of one source document,
	// lowercased anchor text mapped to its target URL.
	ActiveAnchorTexts(ctx context.Context, sourceID int64) (map[string]string, error)
}

// BlacklistRepository is the permanent suppression list. Suppression is
// URL-granular: one rejected phrase blocks the whole URL for that source.
type BlacklistRepository interface {
	Contains(ctx context.Context, sourceID int64, targetURL string) (bool, error)
}
