package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/tekstlab/interlink/internal/config"
	"github.com/tekstlab/interlink/internal/domain"
	"github.com/tekstlab/interlink/internal/text"
)

// Indexer keeps the vector store in step with the content source: it
// re-chunks and re-embeds documents whose content hash changed and leaves
// up-to-date ones alone.
type Indexer struct {
	source     ContentSource
	embeddings EmbeddingRepository
	targets    CustomTargetRepository
	provider   EmbeddingProvider
	chunkCfg   text.ChunkConfig
	settings   config.Settings
}

// NewIndexer creates an Indexer.
func NewIndexer(
	source ContentSource,
	embeddings EmbeddingRepository,
	targets CustomTargetRepository,
	provider EmbeddingProvider,
	settings config.Settings,
) *Indexer {
	return &Indexer{
		source:     source,
		embeddings: embeddings,
		targets:    targets,
		provider:   provider,
		chunkCfg:   text.DefaultChunkConfig(),
		settings:   settings,
	}
}

// IndexResult summarizes one indexing page.
type IndexResult struct {
	// Processed is how many documents the page covered, embedded or not.
	Processed int
	// Indexed is how many documents were (re)embedded.
	Indexed int
	// Done is true when the content source returned no more documents.
	Done bool
}

type indexPlan struct {
	doc    *domain.Document
	chunks []string
}

// IndexPage processes one bounded page of documents. All texts of every
// stale document in the page go to the provider in a single batched call;
// on success each document's embedding rows are replaced atomically. On
// provider failure the error propagates and the caller must not advance its
// cursor, so the page is retried in full.
func (ix *Indexer) IndexPage(ctx context.Context, pageSize, offset int) (IndexResult, error) {
	refs, err := ix.source.ListCandidateDocuments(ctx, pageSize, offset)
	if err != nil {
		return IndexResult{}, fmt.Errorf("failed to list candidate documents: %w", err)
	}
	if len(refs) == 0 {
		return IndexResult{Done: true}, nil
	}

	var plans []indexPlan
	var texts []string
	for _, ref := range refs {
		if ix.settings.IsExcludedID(ref.ID) {
			continue
		}

		ownerID := domain.DocumentOwnerID(ref.ID)
		storedHash, err := ix.embeddings.OwnerHash(ctx, ownerID)
		if err != nil {
			return IndexResult{}, fmt.Errorf("failed to read stored hash for %s: %w", ownerID, err)
		}
		if storedHash == ref.ContentHash {
			continue
		}

		doc, err := ix.source.GetContent(ctx, ref.ID)
		if err != nil {
			return IndexResult{}, fmt.Errorf("failed to fetch document %d: %w", ref.ID, err)
		}
		if ix.settings.IsExcludedPostType(doc.Type) || ix.settings.IsExcludedCategory(doc.Categories) {
			continue
		}

		chunks := text.Chunk(doc.Body, ix.chunkCfg)
		plans = append(plans, indexPlan{doc: doc, chunks: chunks})
		texts = append(texts, doc.Title)
		texts = append(texts, chunks...)
	}

	if len(plans) == 0 {
		return IndexResult{Processed: len(refs)}, nil
	}

	vectors, err := ix.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return IndexResult{}, err
	}

	cursor := 0
	createdAt := time.Now().UTC()
	for _, plan := range plans {
		ownerID := domain.DocumentOwnerID(plan.doc.ID)
		rows := make([]domain.Embedding, 0, len(plan.chunks)+1)
		rows = append(rows, domain.Embedding{
			OwnerID:     ownerID,
			ChunkIndex:  domain.TitleChunkIndex,
			Content:     plan.doc.Title,
			Vector:      vectors[cursor],
			ContentHash: plan.doc.ContentHash,
			Categories:  plan.doc.Categories,
			CreatedAt:   createdAt,
		})
		cursor++
		for i, chunk := range plan.chunks {
			rows = append(rows, domain.Embedding{
				OwnerID:     ownerID,
				ChunkIndex:  i + 1,
				Content:     chunk,
				Vector:      vectors[cursor],
				ContentHash: plan.doc.ContentHash,
				Categories:  plan.doc.Categories,
				CreatedAt:   createdAt,
			})
			cursor++
		}
		if err := ix.embeddings.ReplaceOwner(ctx, ownerID, rows); err != nil {
			return IndexResult{}, fmt.Errorf("failed to replace embeddings for %s: %w", ownerID, err)
		}
	}

	log.Printf("indexer: page offset %d embedded %d of %d documents", offset, len(plans), len(refs))
	return IndexResult{Processed: len(refs), Indexed: len(plans)}, nil
}

// EmbedCustomTargets generates title embeddings for curated targets that
// still lack one (or whose title changed).
func (ix *Indexer) EmbedCustomTargets(ctx context.Context) error {
	targets, err := ix.targets.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list custom targets: %w", err)
	}

	var stale []domain.CustomTarget
	var texts []string
	for _, t := range targets {
		ownerID := domain.CustomTargetOwnerID(t.ID)
		hash := HashText(t.Title)
		storedHash, err := ix.embeddings.OwnerHash(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to read stored hash for %s: %w", ownerID, err)
		}
		if storedHash == hash {
			continue
		}
		stale = append(stale, t)
		texts = append(texts, t.Title)
	}
	if len(stale) == 0 {
		return nil
	}

	vectors, err := ix.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	createdAt := time.Now().UTC()
	for i, t := range stale {
		ownerID := domain.CustomTargetOwnerID(t.ID)
		row := domain.Embedding{
			OwnerID:     ownerID,
			ChunkIndex:  domain.TitleChunkIndex,
			Content:     t.Title,
			Vector:      vectors[i],
			ContentHash: HashText(t.Title),
			CreatedAt:   createdAt,
		}
		if err := ix.embeddings.ReplaceOwner(ctx, ownerID, []domain.Embedding{row}); err != nil {
			return fmt.Errorf("failed to replace embedding for %s: %w", ownerID, err)
		}
	}
	log.Printf("indexer: embedded %d custom targets", len(stale))
	return nil
}

// MatchSourceFor assembles the matching input for one document: its current
// content and its stored body chunk vectors.
func (ix *Indexer) MatchSourceFor(ctx context.Context, id int64) (MatchSource, error) {
	doc, err := ix.source.GetContent(ctx, id)
	if err != nil {
		return MatchSource{}, fmt.Errorf("failed to fetch document %d: %w", id, err)
	}
	chunks, err := ix.embeddings.BodyChunks(ctx, domain.DocumentOwnerID(id))
	if err != nil {
		return MatchSource{}, fmt.Errorf("failed to load chunks for document %d: %w", id, err)
	}
	return MatchSource{Document: doc, Chunks: chunks}, nil
}

// HashText is the content hash used for synthetic owners such as custom
// target titles.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
