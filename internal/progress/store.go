// Package progress provides the ephemeral key-value store the pipeline
// keeps its run state in. Entries carry a TTL; deleting an entry is the
// cancellation mechanism, so Delete must be idempotent.
package progress

import (
	"context"
	"time"
)

// Store is the persistence interface injected into the orchestrator. No
// ambient global state: every tick reads and writes through it.
type Store interface {
	// Get returns the stored value and whether it exists. An expired entry
	// behaves as absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the value with the given TTL, replacing any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
