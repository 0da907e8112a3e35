package memory

import (
	"context"
	"fmt"
	"strings"
)

// MaxSurfaced is the hard cap consumed by the personal-fact quality gate.
const MaxSurfaced = 2

const surfacingScanLimit = 200

// Surfacer selects which memories a reply may reference.
type Surfacer struct {
	store Store
}

func NewSurfacer(store Store) *Surfacer {
	return &Surfacer{store: store}
}

// SelectForSurfacing returns at most MaxSurfaced relevant ids, in the order
// found. Never returns nil; an empty slice means nothing qualifies.
func (s *Surfacer) SelectForSurfacing(ctx context.Context, userID, friendID, normText string) ([]string, error) {
	ids := []string{}
	records, err := s.store.ListActive(ctx, userID, friendID, surfacingScanLimit)
	if err != nil {
		return ids, fmt.Errorf("list active memories: %w", err)
	}
	suppressed, err := s.store.SuppressedKeys(ctx, userID)
	if err != nil {
		return ids, fmt.Errorf("load suppressed keys: %w", err)
	}

	for _, rec := range records {
		if suppressed[rec.Key] {
			continue
		}
		if mentions(normText, rec.Value) {
			ids = append(ids, rec.ID)
			if len(ids) == MaxSurfaced {
				break
			}
		}
	}
	return ids, nil
}

// mentions checks whether the user's message contains the record's value.
// Preference values carry a stance prefix which is not part of the text.
func mentions(normText, value string) bool {
	if i := strings.IndexByte(value, '|'); i >= 0 {
		value = value[i+1:]
	}
	needle := strings.ReplaceAll(value, "_", " ")
	return needle != "" && strings.Contains(normText, needle)
}
