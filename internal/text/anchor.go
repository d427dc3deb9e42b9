package text

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// Penalties applied to phrases that feel grammatically cut off.
	trailingStopWordPenalty = 0.15
	leadingStopWordPenalty  = 0.10

	// minAnchorChars is the shortest anchor worth linking.
	minAnchorChars = 3

	// minMeaningfulWordLen drops words too short to carry meaning when
	// building the title word set.
	minMeaningfulWordLen = 3

	// Two word forms count as the same lemma when they share a stem of at
	// least minStemRunes and differ only in a suffix of at most
	// maxSuffixRunes. Polish inflects by suffix, so "kredytu" and "kredyty"
	// share the stem "kredyt" while "kredka" falls short of it.
	minStemRunes   = 5
	maxSuffixRunes = 3
)

// AnchorConfig bounds the word length of candidate anchor phrases.
type AnchorConfig struct {
	MinWords int
	MaxWords int
}

// DefaultAnchorConfig provides the algorithm-level defaults.
func DefaultAnchorConfig() AnchorConfig {
	return AnchorConfig{MinWords: 2, MaxWords: 6}
}

// AnchorSelector extracts the best literal anchor phrase from a chunk for a
// given target title. Deterministic scoring, no I/O.
type AnchorSelector struct {
	cfg AnchorConfig
}

// NewAnchorSelector creates an AnchorSelector, falling back to defaults for
// missing or inverted bounds.
func NewAnchorSelector(cfg AnchorConfig) *AnchorSelector {
	def := DefaultAnchorConfig()
	if cfg.MinWords <= 0 {
		cfg.MinWords = def.MinWords
	}
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = def.MaxWords
	}
	if cfg.MinWords > cfg.MaxWords {
		cfg.MinWords, cfg.MaxWords = cfg.MaxWords, cfg.MinWords
	}
	return &AnchorSelector{cfg: cfg}
}

type anchorCandidate struct {
	phrase    string
	wordCount int
	score     float64
}

// Select returns the best anchor phrase for targetTitle found inside chunk,
// with the chunk's original casing, or ok=false when nothing qualifies.
func (s *AnchorSelector) Select(chunk, targetTitle string) (string, bool) {
	titleWords := MeaningfulWords(targetTitle)
	if len(titleWords) == 0 {
		return "", false
	}

	words := strings.Fields(chunk)
	if len(words) < s.cfg.MinWords {
		return "", false
	}

	best := make(map[string]anchorCandidate)
	for n := s.cfg.MinWords; n <= s.cfg.MaxWords; n++ {
		for i := 0; i+n <= len(words); i++ {
			cand, ok := s.scoreNGram(words[i:i+n], titleWords)
			if !ok {
				continue
			}
			key := strings.ToLower(cand.phrase)
			if prev, exists := best[key]; !exists || cand.score > prev.score {
				best[key] = cand
			}
		}
	}
	if len(best) == 0 {
		return "", false
	}

	candidates := make([]anchorCandidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].wordCount != candidates[j].wordCount {
			return candidates[i].wordCount < candidates[j].wordCount
		}
		return len(candidates[i].phrase) < len(candidates[j].phrase)
	})

	lowerChunk := strings.ToLower(chunk)
	for _, cand := range candidates {
		lowerPhrase := strings.ToLower(cand.phrase)
		idx := strings.Index(lowerChunk, lowerPhrase)
		if idx < 0 || idx+len(lowerPhrase) > len(chunk) {
			continue
		}
		original := chunk[idx : idx+len(lowerPhrase)]
		if utf8.RuneCountInString(strings.TrimSpace(original)) < minAnchorChars {
			continue
		}
		return original, true
	}
	return "", false
}

// scoreNGram applies the exclusion rules and word-overlap scoring to one
// contiguous word n-gram.
func (s *AnchorSelector) scoreNGram(raw []string, titleWords map[string]struct{}) (anchorCandidate, bool) {
	// A sentence boundary inside the phrase means it spans two sentences.
	for i := 0; i < len(raw)-1; i++ {
		if hasSentenceEnd(raw[i]) {
			return anchorCandidate{}, false
		}
	}
	if startsWithPunct(raw[0]) || endsWithPunct(raw[len(raw)-1]) {
		return anchorCandidate{}, false
	}

	stripped := make([]string, 0, len(raw))
	for _, w := range raw {
		clean := strings.ToLower(strings.TrimFunc(w, isPunct))
		if clean != "" {
			stripped = append(stripped, clean)
		}
	}
	// Punctuation stripping can change the real word count; re-validate.
	if len(stripped) < s.cfg.MinWords || len(stripped) > s.cfg.MaxWords {
		return anchorCandidate{}, false
	}
	if _, forbidden := trailingForbiddenWords[stripped[len(stripped)-1]]; forbidden {
		return anchorCandidate{}, false
	}

	matchedTitle := make(map[string]struct{})
	matchedWords := 0
	for _, w := range stripped {
		hit := false
		for t := range titleWords {
			if sameLemma(w, t) {
				matchedTitle[t] = struct{}{}
				hit = true
			}
		}
		if hit {
			matchedWords++
		}
	}
	overlap := len(matchedTitle)
	if overlap == 0 {
		return anchorCandidate{}, false
	}
	precision := float64(matchedWords) / float64(len(stripped))
	recall := float64(overlap) / float64(len(titleWords))
	// A single incidental shared word is not a connection to the title.
	if overlap < 2 && precision < 0.5 {
		return anchorCandidate{}, false
	}

	f1 := 2 * precision * recall / (precision + recall)
	factor := 1.0
	if IsStopWord(stripped[len(stripped)-1]) {
		factor -= trailingStopWordPenalty
	}
	if IsStopWord(stripped[0]) {
		factor -= leadingStopWordPenalty
	}

	phrase := strings.TrimFunc(strings.Join(raw, " "), isPunct)
	if phrase == "" {
		return anchorCandidate{}, false
	}
	return anchorCandidate{
		phrase:    phrase,
		wordCount: len(stripped),
		score:     f1 * factor,
	}, true
}

// MeaningfulWords builds the set of title words the anchor is scored
// against: lowercased, split on whitespace and punctuation, stop words and
// words under three characters dropped.
func MeaningfulWords(title string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) < minMeaningfulWordLen {
			continue
		}
		if IsStopWord(w) {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// sameLemma reports whether two lowercased words are plausibly inflected
// forms of one lemma: a shared prefix of at least minStemRunes covering all
// but the last maxSuffixRunes of each word. Without it an inflected anchor
// ("kredytu hipotecznego") never overlaps its title's base forms ("Kredyty
// hipoteczne").
func sameLemma(a, b string) bool {
	if a == b {
		return true
	}
	ra, rb := []rune(a), []rune(b)
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	shared := 0
	for shared < n && ra[shared] == rb[shared] {
		shared++
	}
	if shared < minStemRunes {
		return false
	}
	return len(ra)-shared <= maxSuffixRunes && len(rb)-shared <= maxSuffixRunes
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func hasSentenceEnd(word string) bool {
	r, size := utf8.DecodeLastRuneInString(word)
	if size == 0 {
		return false
	}
	return r == '.' || r == '!' || r == '?'
}

func startsWithPunct(word string) bool {
	r, size := utf8.DecodeRuneInString(word)
	return size > 0 && isPunct(r)
}

func endsWithPunct(word string) bool {
	r, size := utf8.DecodeLastRuneInString(word)
	return size > 0 && isPunct(r)
}
