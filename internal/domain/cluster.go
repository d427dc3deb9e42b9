package domain

// AnchorCluster is one equivalence class of anchor phrases considered the
// same link intent: a representative phrase, its embedding, and the single
// target URL that meaning is allowed to point at site-wide.
type AnchorCluster struct {
	Anchor    string
	Vector    []float32
	TargetURL string
}
