package domain

import (
	"fmt"
	"net/url"
	"time"
)

// LinkStatus represents the review status of a proposed link.
type LinkStatus string

const (
	LinkStatusActive   LinkStatus = "active"
	LinkStatusRejected LinkStatus = "rejected"
	LinkStatusFiltered LinkStatus = "filtered"
)

// Link is one proposed internal link: a literal anchor phrase in a source
// document pointing at a target URL. TargetID is 0 for custom or external
// targets.
type Link struct {
	ID         string
	SourceID   int64
	AnchorText string
	TargetURL  string
	TargetID   int64
	Score      float64
	Status     LinkStatus
	CreatedAt  time.Time
}

// NewLink creates a new Link instance.
func NewLink(id string, sourceID int64, anchorText, targetURL string, targetID int64, score float64, status LinkStatus, createdAt time.Time) *Link {
	return &Link{
		ID:         id,
		SourceID:   sourceID,
		AnchorText: anchorText,
		TargetURL:  targetURL,
		TargetID:   targetID,
		Score:      score,
		Status:     status,
		CreatedAt:  createdAt,
	}
}

// ValidateLink validates a Link instance before persistence. The store must
// reject the row outright rather than write a partial record.
func ValidateLink(l *Link) error {
	if l == nil {
		return fmt.Errorf("link cannot be nil")
	}
	if l.ID == "" {
		return fmt.Errorf("link ID is required")
	}
	if l.SourceID <= 0 {
		return fmt.Errorf("link SourceID is required")
	}
	if l.AnchorText == "" {
		return fmt.Errorf("link AnchorText is required")
	}
	if l.TargetURL == "" {
		return fmt.Errorf("link TargetURL is required")
	}
	parsed, err := url.Parse(l.TargetURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("link TargetURL is not a valid absolute URL: %q", l.TargetURL)
	}
	if l.Score < 0 || l.Score > 1 {
		return fmt.Errorf("link Score must be within [0,1], got %f", l.Score)
	}
	if !isValidLinkStatus(l.Status) {
		return fmt.Errorf("link Status is invalid: %s", l.Status)
	}
	return nil
}

// isValidLinkStatus checks if a LinkStatus is valid.
func isValidLinkStatus(s LinkStatus) bool {
	switch s {
	case LinkStatusActive, LinkStatusRejected, LinkStatusFiltered:
		return true
	}
	return false
}

// IsValid reports whether the status is one of the known values.
func (s LinkStatus) IsValid() bool {
	return isValidLinkStatus(s)
}
