package topic

import (
	"math"
	"strings"
)

// Match is one topic's score for a single message.
type Match struct {
	Topic         ID
	HitCount      int
	Confidence    float64
	UserInitiated bool
}

const (
	baseConfidence    = 0.35
	perHitConfidence  = 0.15
	initiatedAtOrOver = 0.70
)

// ComputeMatches scores normNoPunct against every topic table. HitCount is
// the number of DISTINCT entries that matched at least once; repeating the
// same keyword does not raise it. Only topics with at least one hit are
// returned, in canonical topic order.
func ComputeMatches(normNoPunct string) []Match {
	if strings.TrimSpace(normNoPunct) == "" {
		return nil
	}
	out := make([]Match, 0, 4)
	for _, id := range All {
		hits := 0
		for _, entry := range keywordTable[id] {
			if entryMatches(normNoPunct, entry) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		conf := confidenceFor(hits)
		out = append(out, Match{
			Topic:         id,
			HitCount:      hits,
			Confidence:    conf,
			UserInitiated: conf >= initiatedAtOrOver,
		})
	}
	return out
}

// confidenceFor returns min(1.0, 0.35 + 0.15*hits) rounded to two decimals.
// Rounding keeps repeated runs byte-identical under float accumulation.
func confidenceFor(hits int) float64 {
	c := baseConfidence + perHitConfidence*float64(hits)
	if c > 1.0 {
		c = 1.0
	}
	return math.Round(c*100) / 100
}

// entryMatches applies the per-script matching rule: ASCII entries need
// whole-word boundaries, anything else matches by substring containment.
func entryMatches(text, entry string) bool {
	if entry == "" {
		return false
	}
	if isASCII(entry) {
		return containsWholeWord(text, entry)
	}
	return strings.Contains(text, entry)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// containsWholeWord reports whether phrase occurs in text bounded by
// non-word characters (or string edges) on both sides. Word characters are
// ASCII letters, digits and apostrophe, matching the normalizer's output.
func containsWholeWord(text, phrase string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], phrase)
		if idx < 0 {
			return false
		}
		idx += start
		leftOK := idx == 0 || !isWordByte(text[idx-1])
		end := idx + len(phrase)
		rightOK := end >= len(text) || !isWordByte(text[end])
		if leftOK && rightOK {
			return true
		}
		start = idx + 1
		if start >= len(text) {
			return false
		}
	}
}

func isWordByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '\'':
		return true
	}
	return false
}

// Find returns the match for id, if present.
func Find(matches []Match, id ID) (Match, bool) {
	for _, m := range matches {
		if m.Topic == id {
			return m, true
		}
	}
	return Match{}, false
}
