package domain

import (
	"fmt"
	"time"
)

// TitleChunkIndex is the reserved chunk index for a document's title vector.
const TitleChunkIndex = 0

// Embedding is one stored vector for an owner (document or custom target).
// Chunk index 0 is always the title; indices >= 1 are body fragments. An
// embedding is valid only while its ContentHash matches the owner's current
// hash.
type Embedding struct {
	OwnerID     string
	ChunkIndex  int
	Content     string
	Vector      []float32
	ContentHash string
	// Categories are denormalized from the owning document so category
	// matching needs no content source round trip.
	Categories []string
	CreatedAt  time.Time
}

// DocumentOwnerID builds the embedding owner key for a document.
func DocumentOwnerID(documentID int64) string {
	return fmt.Sprintf("document:%d", documentID)
}

// CustomTargetOwnerID builds the embedding owner key for a custom target.
func CustomTargetOwnerID(targetID int64) string {
	return fmt.Sprintf("custom:%d", targetID)
}

// ValidateEmbedding validates an Embedding instance.
func ValidateEmbedding(e *Embedding) error {
	if e == nil {
		return fmt.Errorf("embedding cannot be nil")
	}
	if e.OwnerID == "" {
		return fmt.Errorf("embedding OwnerID is required")
	}
	if e.ChunkIndex < 0 {
		return fmt.Errorf("embedding ChunkIndex cannot be negative")
	}
	if len(e.Vector) == 0 {
		return fmt.Errorf("embedding Vector is required")
	}
	if e.ContentHash == "" {
		return fmt.Errorf("embedding ContentHash is required")
	}
	return nil
}
