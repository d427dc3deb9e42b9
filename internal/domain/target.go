package domain

// Target is a candidate the matcher may link to. It is a closed sum:
// DocumentTarget (another document in the corpus, resolved to a URL at
// commit time) or CustomTarget (an externally curated URL with relaxed
// thresholds and filter bypass). Every consumer type-switches over both.
type Target interface {
	TargetTitle() string
	TitleVector() []float32
	isTarget()
}

// DocumentTarget is a corpus document offered as a link target, matched by
// its title vector.
type DocumentTarget struct {
	ID         int64
	Title      string
	Vector     []float32
	Categories []string
}

func (t DocumentTarget) TargetTitle() string    { return t.Title }
func (t DocumentTarget) TitleVector() []float32 { return t.Vector }
func (DocumentTarget) isTarget()                {}

// CustomTarget is a manually curated (URL, title) pair injected into the
// match space. It bypasses category checks and the contextual filter and
// uses its own, lower similarity threshold.
type CustomTarget struct {
	ID     int64
	Title  string
	URL    string
	Vector []float32
}

func (t CustomTarget) TargetTitle() string    { return t.Title }
func (t CustomTarget) TitleVector() []float32 { return t.Vector }
func (CustomTarget) isTarget()                {}
