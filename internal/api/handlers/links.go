package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tekstlab/interlink/internal/api"
	"github.com/tekstlab/interlink/internal/domain"
	"github.com/tekstlab/interlink/internal/pagination"
)

type LinkStore interface {
	List(ctx context.Context, status domain.LinkStatus, sourceID int64, limit int, cursor *pagination.Cursor) ([]*domain.Link, error)
	Reject(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

type BlacklistStore interface {
	Remove(ctx context.Context, sourceID int64, targetURL string) error
}

type LinkHandler struct {
	links     LinkStore
	blacklist BlacklistStore
}

func NewLinkHandler(links LinkStore, blacklist BlacklistStore) *LinkHandler {
	return &LinkHandler{links: links, blacklist: blacklist}
}

type LinkResponse struct {
	ID         string  `json:"id"`
	SourceID   int64   `json:"source_id"`
	AnchorText string  `json:"anchor_text"`
	TargetURL  string  `json:"target_url"`
	TargetID   int64   `json:"target_id,omitempty"`
	Score      float64 `json:"score"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
}

type LinkListResponse struct {
	Links   []*LinkResponse `json:"links"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"has_more"`
}

type RestoreRequest struct {
	LinkID    string `json:"link_id,omitempty"`
	SourceID  int64  `json:"source_id,omitempty"`
	TargetURL string `json:"target_url,omitempty"`
}

// List returns stored link proposals, optionally filtered by status and
// source document.
func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var status domain.LinkStatus
	if s := query.Get("status"); s != "" {
		status = domain.LinkStatus(s)
		if !status.IsValid() {
			api.Error(w, http.StatusBadRequest, "invalid status")
			return
		}
	}

	var sourceID int64
	if s := query.Get("source_id"); s != "" {
		var err error
		sourceID, err = strconv.ParseInt(s, 10, 64)
		if err != nil || sourceID <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid source_id")
			return
		}
	}

	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 50
	}

	cursor, err := pagination.DecodeCursor(query.Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	links, err := h.links.List(r.Context(), status, sourceID, limit, cursor)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*LinkResponse, len(links))
	for i, link := range links {
		responses[i] = &LinkResponse{
			ID:         link.ID,
			SourceID:   link.SourceID,
			AnchorText: link.AnchorText,
			TargetURL:  link.TargetURL,
			TargetID:   link.TargetID,
			Score:      link.Score,
			Status:     string(link.Status),
			CreatedAt:  link.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}

	next := pagination.CreateNextCursor(links, limit,
		func(l *domain.Link) string { return l.ID },
		func(l *domain.Link) time.Time { return l.CreatedAt },
	)

	api.Success(w, http.StatusOK, LinkListResponse{
		Links:   responses,
		Cursor:  next,
		HasMore: next != "",
	})
}

// Reject marks a link rejected and suppresses its target URL for the source
// document permanently. Rejection is URL-granular: no future anchor, however
// phrased, will point that source at the same URL again.
func (h *LinkHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "link id is required")
		return
	}

	if err := h.links.Reject(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{"status": "rejected"})
}

// Restore lifts a suppression. Given a link id it reactivates the link and
// clears the blacklist row; given a (source_id, target_url) pair it clears
// the blacklist row alone.
func (h *LinkHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.LinkID != "" {
		if err := h.links.Restore(r.Context(), req.LinkID); err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusOK, map[string]any{"status": "restored"})
		return
	}

	if req.SourceID <= 0 || req.TargetURL == "" {
		api.Error(w, http.StatusBadRequest, "link_id or source_id and target_url are required")
		return
	}

	if err := h.blacklist.Remove(r.Context(), req.SourceID, req.TargetURL); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{"status": "restored"})
}
