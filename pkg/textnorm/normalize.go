// Package textnorm produces the canonical text variants every downstream
// classifier consumes. Normalization is a pure function: identical raw input
// always yields identical output, with no locale or clock dependence.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Result holds the two normalized variants of one raw message.
type Result struct {
	// NormText is NFKC-normalized, zero-width-stripped, whitespace-collapsed
	// text with ASCII letters lowercased. Non-Latin scripts keep their form.
	NormText string
	// NormNoPunct is NormText with punctuation removed. Apostrophes are kept
	// so contractions ("don't") survive keyword matching.
	NormNoPunct string
}

// Normalize computes both canonical variants of raw user text.
func Normalize(raw string) Result {
	text := norm.NFKC.String(raw)

	var b strings.Builder
	b.Grow(len(text))
	lastSpace := false
	for _, r := range text {
		if isZeroWidth(r) {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		lastSpace = false
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	normText := strings.TrimSpace(b.String())

	return Result{
		NormText:    normText,
		NormNoPunct: stripPunct(normText),
	}
}

func stripPunct(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := false
	for _, r := range text {
		switch {
		case r == '\'':
			b.WriteRune(r)
			lastSpace = false
		case IsHangul(r):
			// Hangul syllables and Jamo pass through untouched.
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			continue
		case r == ' ':
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// IsHangul reports whether r falls in the Hangul syllable or Jamo blocks.
func IsHangul(r rune) bool {
	switch {
	case r >= 0xAC00 && r <= 0xD7A3: // syllables
		return true
	case r >= 0x1100 && r <= 0x11FF: // Jamo
		return true
	case r >= 0x3130 && r <= 0x318F: // compatibility Jamo
		return true
	case r >= 0xA960 && r <= 0xA97F: // Jamo extended-A
		return true
	case r >= 0xD7B0 && r <= 0xD7FF: // Jamo extended-B
		return true
	}
	return false
}

// isZeroWidth covers zero-width and other invisible format characters
// (ZWSP, ZWNJ, ZWJ, word joiner, BOM are all category Cf).
func isZeroWidth(r rune) bool {
	return unicode.Is(unicode.Cf, r)
}

// TokenCount counts whitespace-separated tokens in normalized text. Used as
// the cheap token estimate for routing and relationship evidence.
func TokenCount(normText string) int {
	if strings.TrimSpace(normText) == "" {
		return 0
	}
	return len(strings.Fields(normText))
}
