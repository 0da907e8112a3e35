package memory

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/taepop/chingoo-sub000/pkg/textnorm"
)

const maxSlugLen = 48

// Slugify builds the canonical key/value fragment from harvested text:
// NFKC, trim, lowercase ASCII, spaces to underscores, punctuation stripped
// except underscores, non-Latin scripts preserved, truncated to 48 runes.
func Slugify(raw string) string {
	text := norm.NFKC.String(strings.TrimSpace(raw))
	var b strings.Builder
	b.Grow(len(text))
	lastUnderscore := false
	for _, r := range text {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			lastUnderscore = false
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_':
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		case unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		case textnorm.IsHangul(r) || unicode.IsLetter(r):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			// punctuation and symbols drop out
		}
	}
	slug := strings.Trim(b.String(), "_")
	runes := []rune(slug)
	if len(runes) > maxSlugLen {
		slug = strings.Trim(string(runes[:maxSlugLen]), "_")
	}
	return slug
}
