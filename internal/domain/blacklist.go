package domain

import (
	"fmt"
	"time"
)

// BlacklistEntry permanently suppresses every anchor from a source document
// to a target URL. The anchor text is stored for audit only; suppression is
// URL-granular, not anchor-granular. Only an explicit restore removes it.
type BlacklistEntry struct {
	SourceID   int64
	TargetURL  string
	AnchorText string
	CreatedAt  time.Time
}

// ValidateBlacklistEntry validates a BlacklistEntry instance.
func ValidateBlacklistEntry(e *BlacklistEntry) error {
	if e == nil {
		return fmt.Errorf("blacklist entry cannot be nil")
	}
	if e.SourceID <= 0 {
		return fmt.Errorf("blacklist entry SourceID is required")
	}
	if e.TargetURL == "" {
		return fmt.Errorf("blacklist entry TargetURL is required")
	}
	return nil
}
