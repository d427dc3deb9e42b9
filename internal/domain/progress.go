package domain

import (
	"fmt"
	"time"
)

// Phase represents the current phase of a pipeline run.
type Phase string

const (
	PhaseIndexing  Phase = "indexing"
	PhaseMatching  Phase = "matching"
	PhaseFiltering Phase = "filtering"
	PhaseComplete  Phase = "complete"
)

// LinkCandidate is a link proposal that has passed matching and anchor
// selection but has not been committed yet. Candidates are queued when the
// secondary contextual filter is enabled.
type LinkCandidate struct {
	SourceID    int64   `json:"source_id"`
	AnchorText  string  `json:"anchor_text"`
	TargetURL   string  `json:"target_url"`
	TargetID    int64   `json:"target_id"`
	TargetTitle string  `json:"target_title"`
	Score       float64 `json:"score"`
	Custom      bool    `json:"custom"`
}

// BatchProgress is the serialized state of one pipeline run. It is the only
// state shared between ticks: each tick reads it, does a bounded unit of
// work, and writes it back. Deleting it cancels the run.
type BatchProgress struct {
	RunID        string          `json:"run_id"`
	Phase        Phase           `json:"phase"`
	Offset       int             `json:"offset"`
	Total        int             `json:"total"`
	Processed    int             `json:"processed"`
	Indexed      int             `json:"indexed"`
	Created      int             `json:"created"`
	Filtered     int             `json:"filtered"`
	Skipped      int             `json:"skipped"`
	Pending      []LinkCandidate `json:"pending,omitempty"`
	FilterCursor int             `json:"filter_cursor"`
	Truncated    bool            `json:"truncated,omitempty"`
	Warnings     int             `json:"warnings"`
	StartedAt    time.Time       `json:"started_at"`
}

// ValidateBatchProgress validates a BatchProgress instance.
func ValidateBatchProgress(p *BatchProgress) error {
	if p == nil {
		return fmt.Errorf("batch progress cannot be nil")
	}
	if p.RunID == "" {
		return fmt.Errorf("batch progress RunID is required")
	}
	if !isValidPhase(p.Phase) {
		return fmt.Errorf("batch progress Phase is invalid: %s", p.Phase)
	}
	if p.Offset < 0 {
		return fmt.Errorf("batch progress Offset cannot be negative")
	}
	return nil
}

// isValidPhase checks if a Phase is valid.
func isValidPhase(p Phase) bool {
	switch p {
	case PhaseIndexing, PhaseMatching, PhaseFiltering, PhaseComplete:
		return true
	}
	return false
}
