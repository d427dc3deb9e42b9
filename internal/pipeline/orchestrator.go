// Package pipeline drives the batch run as an explicit finite-state
// machine: Indexing -> Matching -> Filtering (optional) -> Complete. Each
// Tick is one bounded, self-contained unit of work: it reads the persisted
// progress, works, writes progress, and returns. No background threads; the
// caller re-invokes Tick until the run completes. In-process memory is never
// assumed to survive between ticks.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tekstlab/interlink/internal/config"
	"github.com/tekstlab/interlink/internal/domain"
	"github.com/tekstlab/interlink/internal/progress"
	"github.com/tekstlab/interlink/internal/service"
)

// progressKey is the single progress slot; its presence means a run is
// active, and checking it before Start enforces one run at a time.
const progressKey = "run"

// TickResult tells the caller what one invocation did and whether to come
// back later instead of immediately.
type TickResult struct {
	Phase     domain.Phase  `json:"phase"`
	Processed int           `json:"processed"`
	Total     int           `json:"total"`
	Done      bool          `json:"done"`
	// Retry means the same unit of work must be re-scheduled; RetryAfter is
	// the provider's backoff hint. The cursor was not advanced.
	Retry      bool          `json:"retry"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Orchestrator sequences the pipeline phases over a persisted progress
// record. All collaborators are injected; there is no ambient global state.
type Orchestrator struct {
	store     progress.Store
	indexer   *service.Indexer
	matcher   *service.Matcher
	registry  *service.ClusterRegistry
	links     service.LinkRepository
	embeddings service.EmbeddingRepository
	customs   service.CustomTargetRepository
	evaluator service.ContextualEvaluator
	provider  service.EmbeddingProvider
	reporter  *service.Reporter
	settings  config.Settings
	now       func() time.Time
}

// NewOrchestrator creates an Orchestrator. evaluator may be nil when the
// secondary filter is disabled.
func NewOrchestrator(
	store progress.Store,
	indexer *service.Indexer,
	matcher *service.Matcher,
	registry *service.ClusterRegistry,
	links service.LinkRepository,
	embeddings service.EmbeddingRepository,
	customs service.CustomTargetRepository,
	evaluator service.ContextualEvaluator,
	provider service.EmbeddingProvider,
	reporter *service.Reporter,
	settings config.Settings,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		indexer:    indexer,
		matcher:    matcher,
		registry:   registry,
		links:      links,
		embeddings: embeddings,
		customs:    customs,
		evaluator:  evaluator,
		provider:   provider,
		reporter:   reporter,
		settings:   settings,
		now:        time.Now,
	}
}

// Start begins a new run. At most one run is active at a time: an existing
// progress record means a run is in flight and Start fails.
func (o *Orchestrator) Start(ctx context.Context) (*domain.BatchProgress, error) {
	if _, exists, err := o.load(ctx, progressKey); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.ErrPipelineActive
	}

	p := &domain.BatchProgress{
		RunID:     uuid.NewString(),
		Phase:     domain.PhaseIndexing,
		StartedAt: o.now().UTC(),
	}
	if err := o.save(ctx, progressKey, p); err != nil {
		return nil, err
	}
	log.Printf("pipeline: run %s started", p.RunID)
	return p, nil
}

// Status returns the current progress, or ErrProgressNotFound when no run
// is active.
func (o *Orchestrator) Status(ctx context.Context) (*domain.BatchProgress, error) {
	p, exists, err := o.load(ctx, progressKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrProgressNotFound
	}
	return p, nil
}

// Cancel deletes the progress record; unconditionally safe and idempotent
// from any phase. Every dependent phase of a run, the matching and filtering
// work spawned by its indexing included, lives in this one record, so
// deleting it cancels them all with nothing left to cascade to.
func (o *Orchestrator) Cancel(ctx context.Context) error {
	p, exists, err := o.load(ctx, progressKey)
	if err != nil {
		return err
	}
	if err := o.store.Delete(ctx, progressKey); err != nil {
		return err
	}
	if exists {
		log.Printf("pipeline: run %s cancelled during %s", p.RunID, p.Phase)
	}
	return nil
}

// Tick performs one bounded unit of work for the active run. Cancellation
// is cooperative: absence of progress is checked here, at the tick
// boundary, never mid-tick.
func (o *Orchestrator) Tick(ctx context.Context) (*TickResult, error) {
	p, exists, err := o.load(ctx, progressKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrProgressNotFound
	}

	switch p.Phase {
	case domain.PhaseIndexing:
		return o.tickIndexing(ctx, p)
	case domain.PhaseMatching:
		return o.tickMatching(ctx, p)
	case domain.PhaseFiltering:
		return o.tickFiltering(ctx, p)
	default:
		// A persisted complete phase should not exist; treat it as done and
		// clear it.
		return o.finalize(ctx, p)
	}
}

func (o *Orchestrator) tickIndexing(ctx context.Context, p *domain.BatchProgress) (*TickResult, error) {
	res, err := o.indexer.IndexPage(ctx, o.settings.IndexPageSize, p.Offset)
	if retry, result := asRetry(err, p); retry {
		return result, nil
	}
	if err != nil {
		// Cursor stays put; the next invocation retries this page in full.
		return nil, err
	}

	if res.Done {
		if err := o.indexer.EmbedCustomTargets(ctx); err != nil {
			if retry, result := asRetry(err, p); retry {
				return result, nil
			}
			return nil, err
		}
		ids, err := o.embeddings.DocumentIDs(ctx)
		if err != nil {
			return nil, err
		}
		p.Phase = domain.PhaseMatching
		p.Offset = 0
		p.Total = len(ids)
		p.Processed = 0
		if err := o.save(ctx, progressKey, p); err != nil {
			return nil, err
		}
		log.Printf("pipeline: run %s indexing complete (%d documents), matching %d sources", p.RunID, p.Indexed, p.Total)
		return &TickResult{Phase: p.Phase, Processed: 0, Total: p.Total}, nil
	}

	p.Offset += o.settings.IndexPageSize
	p.Processed += res.Processed
	p.Indexed += res.Indexed
	if err := o.save(ctx, progressKey, p); err != nil {
		return nil, err
	}
	return &TickResult{Phase: p.Phase, Processed: p.Processed, Total: p.Total}, nil
}

func (o *Orchestrator) tickMatching(ctx context.Context, p *domain.BatchProgress) (*TickResult, error) {
	if retry, result, err := o.seedRegistry(ctx, p); retry || err != nil {
		return result, err
	}

	ids, err := o.embeddings.DocumentIDs(ctx)
	if err != nil {
		return nil, err
	}
	p.Total = len(ids)

	if p.Offset >= len(ids) {
		return o.endMatching(ctx, p)
	}

	end := p.Offset + o.settings.MatchPageSize
	if end > len(ids) {
		end = len(ids)
	}
	page := ids[p.Offset:end]

	targets, err := o.buildTargets(ctx)
	if err != nil {
		return nil, err
	}

	emit := o.commitEmit(p)
	if o.settings.SecondaryFilterEnabled {
		emit = o.queueEmit(p)
	}

	for _, id := range page {
		if o.settings.IsExcludedID(id) {
			continue
		}
		src, err := o.indexer.MatchSourceFor(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrDocumentNotFound) {
				continue
			}
			return nil, err
		}
		if o.settings.IsExcludedCategory(src.Document.Categories) {
			continue
		}
		if _, err := o.matcher.ProcessSource(ctx, src, targets, emit); err != nil {
			return nil, err
		}
	}

	p.Offset = end
	p.Processed += len(page)
	if p.Offset >= len(ids) {
		return o.endMatching(ctx, p)
	}
	if err := o.save(ctx, progressKey, p); err != nil {
		return nil, err
	}
	return &TickResult{Phase: p.Phase, Processed: p.Processed, Total: p.Total}, nil
}

func (o *Orchestrator) endMatching(ctx context.Context, p *domain.BatchProgress) (*TickResult, error) {
	if o.settings.SecondaryFilterEnabled && len(p.Pending) > 0 {
		p.Phase = domain.PhaseFiltering
		p.FilterCursor = 0
		if err := o.save(ctx, progressKey, p); err != nil {
			return nil, err
		}
		log.Printf("pipeline: run %s matching complete, filtering %d candidates", p.RunID, len(p.Pending))
		return &TickResult{Phase: p.Phase, Processed: 0, Total: len(p.Pending)}, nil
	}
	return o.finalize(ctx, p)
}

func (o *Orchestrator) tickFiltering(ctx context.Context, p *domain.BatchProgress) (*TickResult, error) {
	if retry, result, err := o.seedRegistry(ctx, p); retry || err != nil {
		return result, err
	}

	end := p.FilterCursor + o.settings.FilterPageSize
	if end > len(p.Pending) {
		end = len(p.Pending)
	}

	warnings := 0
	for _, cand := range p.Pending[p.FilterCursor:end] {
		pass := true
		// Custom targets are manually curated and bypass the filter.
		if !cand.Custom && o.evaluator != nil {
			verdict, err := o.evaluator.Evaluate(ctx, cand.AnchorText, cand.TargetTitle)
			if err != nil {
				// Fail open: availability over precision, by explicit policy.
				warnings++
				verdict = true
			}
			pass = verdict
		}

		status := domain.LinkStatusActive
		if !pass {
			status = domain.LinkStatusFiltered
		}
		committed, err := o.matcher.Commit(ctx, cand, status)
		if err != nil {
			return nil, err
		}
		switch {
		case committed && status == domain.LinkStatusActive:
			p.Created++
		case committed:
			p.Filtered++
		default:
			p.Skipped++
		}
	}
	if warnings > 0 {
		log.Printf("pipeline: run %s evaluator failed open for %d of %d candidates this tick", p.RunID, warnings, end-p.FilterCursor)
		p.Warnings += warnings
	}

	p.FilterCursor = end
	if p.FilterCursor >= len(p.Pending) {
		return o.finalize(ctx, p)
	}
	if err := o.save(ctx, progressKey, p); err != nil {
		return nil, err
	}
	return &TickResult{Phase: p.Phase, Processed: p.FilterCursor, Total: len(p.Pending)}, nil
}

// finalize records the run, deletes the progress record, and reports final
// counts.
func (o *Orchestrator) finalize(ctx context.Context, p *domain.BatchProgress) (*TickResult, error) {
	report := service.RunReport{
		RunID:      p.RunID,
		StartedAt:  p.StartedAt,
		FinishedAt: o.now().UTC(),
		Indexed:    p.Indexed,
		Created:    p.Created,
		Filtered:   p.Filtered,
		Skipped:    p.Skipped,
		Warnings:   p.Warnings,
	}
	if o.reporter != nil {
		if err := o.reporter.Complete(ctx, report); err != nil {
			return nil, err
		}
	}
	if err := o.store.Delete(ctx, progressKey); err != nil {
		return nil, err
	}
	log.Printf("pipeline: run %s complete: indexed=%d created=%d filtered=%d skipped=%d warnings=%d",
		p.RunID, p.Indexed, p.Created, p.Filtered, p.Skipped, p.Warnings)
	return &TickResult{Phase: domain.PhaseComplete, Processed: p.Processed, Total: p.Total, Done: true}, nil
}

// commitEmit persists accepted candidates immediately as active links.
func (o *Orchestrator) commitEmit(p *domain.BatchProgress) service.EmitFunc {
	return func(ctx context.Context, cand domain.LinkCandidate) (bool, error) {
		committed, err := o.matcher.Commit(ctx, cand, domain.LinkStatusActive)
		if err != nil {
			return false, err
		}
		if committed {
			p.Created++
		} else {
			p.Skipped++
		}
		return committed, nil
	}
}

// queueEmit buffers accepted candidates for the filtering phase. The queue
// is hard-capped; beyond the cap candidates are dropped, not buffered, and
// the truncation is logged once.
func (o *Orchestrator) queueEmit(p *domain.BatchProgress) service.EmitFunc {
	return func(_ context.Context, cand domain.LinkCandidate) (bool, error) {
		if len(p.Pending) >= o.settings.MaxPendingCandidates {
			if !p.Truncated {
				log.Printf("pipeline: run %s pending candidate queue full (%d), dropping further candidates", p.RunID, o.settings.MaxPendingCandidates)
				p.Truncated = true
			}
			p.Skipped++
			return true, nil
		}
		p.Pending = append(p.Pending, cand)
		return true, nil
	}
}

// seedRegistry refreshes the cluster registry from the live link store at
// the start of a committing tick. Seed anchors the registry has not seen
// are embedded in one batch; if the provider is down the registry degrades
// to exact-text seeding, which is logged, and a rate limit surfaces as a
// retry instruction.
func (o *Orchestrator) seedRegistry(ctx context.Context, p *domain.BatchProgress) (retry bool, result *TickResult, err error) {
	anchors, err := o.links.ActiveAnchors(ctx)
	if err != nil {
		return false, nil, err
	}

	var fresh []service.ActiveAnchor
	var texts []string
	for _, a := range anchors {
		if o.registry.KnownText(a.Anchor) {
			continue
		}
		fresh = append(fresh, a)
		texts = append(texts, a.Anchor)
	}
	o.registry.SeedTexts(anchors)
	if len(fresh) == 0 {
		return false, nil, nil
	}

	vectors, err := o.embedSeed(ctx, texts)
	if err != nil {
		var rateLimited *domain.RateLimitError
		if errors.As(err, &rateLimited) {
			return true, &TickResult{Phase: p.Phase, Processed: p.Processed, Total: p.Total, Retry: true, RetryAfter: rateLimited.RetryAfter}, nil
		}
		log.Printf("pipeline: run %s cluster seed embeddings unavailable, exact-text dedup only: %v", p.RunID, err)
		return false, nil, nil
	}
	clusters := make([]domain.AnchorCluster, len(fresh))
	for i, a := range fresh {
		clusters[i] = domain.AnchorCluster{Anchor: a.Anchor, Vector: vectors[i], TargetURL: a.TargetURL}
	}
	o.registry.Seed(clusters)
	return false, nil, nil
}

func (o *Orchestrator) embedSeed(ctx context.Context, texts []string) ([][]float32, error) {
	return o.provider.EmbedBatch(ctx, texts)
}

func (o *Orchestrator) buildTargets(ctx context.Context) ([]domain.Target, error) {
	docTargets, err := o.embeddings.DocumentTargets(ctx)
	if err != nil {
		return nil, err
	}
	customTargets, err := o.customs.List(ctx)
	if err != nil {
		return nil, err
	}

	targets := make([]domain.Target, 0, len(docTargets)+len(customTargets))
	for _, t := range docTargets {
		targets = append(targets, t)
	}
	for _, t := range customTargets {
		if len(t.Vector) == 0 {
			continue
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func (o *Orchestrator) load(ctx context.Context, key string) (*domain.BatchProgress, bool, error) {
	raw, exists, err := o.store.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read progress: %w", err)
	}
	if !exists {
		return nil, false, nil
	}
	var p domain.BatchProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, fmt.Errorf("failed to decode progress: %w", err)
	}
	return &p, true, nil
}

func (o *Orchestrator) save(ctx context.Context, key string, p *domain.BatchProgress) error {
	if err := domain.ValidateBatchProgress(p); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	if err := o.store.Set(ctx, key, raw, o.settings.ProgressTTL); err != nil {
		return fmt.Errorf("failed to write progress: %w", err)
	}
	return nil
}

// asRetry converts a provider rate limit into a structured backoff
// instruction; anything else is left for the caller.
func asRetry(err error, p *domain.BatchProgress) (bool, *TickResult) {
	var rateLimited *domain.RateLimitError
	if errors.As(err, &rateLimited) {
		return true, &TickResult{
			Phase:      p.Phase,
			Processed:  p.Processed,
			Total:      p.Total,
			Retry:      true,
			RetryAfter: rateLimited.RetryAfter,
		}
	}
	return false, nil
}
