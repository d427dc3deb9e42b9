package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/tekstlab/interlink/internal/api"
	"github.com/tekstlab/interlink/internal/domain"
	"github.com/tekstlab/interlink/internal/pipeline"
)

type PipelineService interface {
	Start(ctx context.Context) (*domain.BatchProgress, error)
	Tick(ctx context.Context) (*pipeline.TickResult, error)
	Status(ctx context.Context) (*domain.BatchProgress, error)
	Cancel(ctx context.Context) error
}

type PipelineHandler struct {
	svc PipelineService
}

func NewPipelineHandler(svc PipelineService) *PipelineHandler {
	return &PipelineHandler{svc: svc}
}

type StartResponse struct {
	RunID     string `json:"run_id"`
	Phase     string `json:"phase"`
	StartedAt string `json:"started_at"`
}

type TickResponse struct {
	Phase      string `json:"phase"`
	Processed  int    `json:"processed"`
	Total      int    `json:"total"`
	Done       bool   `json:"done"`
	Retry      bool   `json:"retry"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
}

type StatusResponse struct {
	RunID     string `json:"run_id"`
	Phase     string `json:"phase"`
	Offset    int    `json:"offset"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Indexed   int    `json:"indexed"`
	Created   int    `json:"links_created"`
	Filtered  int    `json:"links_filtered"`
	Skipped   int    `json:"skipped"`
	Pending   int    `json:"pending_candidates"`
	Truncated bool   `json:"truncated,omitempty"`
	Warnings  int    `json:"warnings,omitempty"`
	StartedAt string `json:"started_at"`
}

// Start creates a new pipeline run. Exactly one run may be active; a second
// start returns 409 until the first completes or is cancelled.
func (h *PipelineHandler) Start(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Start(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, StartResponse{
		RunID:     p.RunID,
		Phase:     string(p.Phase),
		StartedAt: p.StartedAt.UTC().Format(time.RFC3339Nano),
	})
}

// Tick advances the active run by one bounded unit of work. A rate-limited
// tick reports retry=true without advancing the cursor; the caller
// reschedules after the hinted backoff.
func (h *PipelineHandler) Tick(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Tick(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, TickResponse{
		Phase:      string(res.Phase),
		Processed:  res.Processed,
		Total:      res.Total,
		Done:       res.Done,
		Retry:      res.Retry,
		RetryAfter: int(res.RetryAfter.Seconds()),
	})
}

func (h *PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Status(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, StatusResponse{
		RunID:     p.RunID,
		Phase:     string(p.Phase),
		Offset:    p.Offset,
		Total:     p.Total,
		Processed: p.Processed,
		Indexed:   p.Indexed,
		Created:   p.Created,
		Filtered:  p.Filtered,
		Skipped:   p.Skipped,
		Pending:   len(p.Pending),
		Truncated: p.Truncated,
		Warnings:  p.Warnings,
		StartedAt: p.StartedAt.UTC().Format(time.RFC3339Nano),
	})
}

// Cancel abandons the active run. Links committed so far stay; only the
// progress record is discarded, so the next start begins a fresh run.
func (h *PipelineHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cancel(r.Context()); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{"status": "cancelled"})
}
