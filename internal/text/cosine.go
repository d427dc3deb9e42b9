// Package text holds the pure in-memory computation of the matching core:
// chunking, cosine similarity, and anchor phrase selection. Nothing here
// performs I/O.
package text

import "math"

// Cosine computes cosine similarity between two vectors. Vectors of unequal
// length are compared over their common prefix; the indexer treats a
// dimension change between provider and store as a configuration error
// before vectors ever meet here. A zero vector yields 0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
