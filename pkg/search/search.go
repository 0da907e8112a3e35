// Package search is the semantic-search collaborator interface plus a local
// in-process implementation backed by a char-gram embedder. The index is
// best-effort everywhere it is consumed; absence degrades to heuristic-only
// surfacing.
package search

import "context"

// TopK is the fixed result budget for Search.
const TopK = 4

// Payload is the metadata filtered on at query time.
type Payload struct {
	UserID   string
	FriendID string
	Key      string
}

// Filters scope a search to one owner pair and exclude suppressed keys.
type Filters struct {
	UserID      string
	FriendID    string
	ExcludeKeys map[string]bool
}

// Index is the semantic-search surface.
type Index interface {
	Upsert(ctx context.Context, memoryID, text string, payload Payload) error
	Delete(ctx context.Context, memoryID string) error
	Search(ctx context.Context, queryText string, f Filters) ([]string, error)
}

// Noop satisfies Index and does nothing. Used when vector search is off.
type Noop struct{}

func (Noop) Upsert(context.Context, string, string, Payload) error     { return nil }
func (Noop) Delete(context.Context, string) error                      { return nil }
func (Noop) Search(context.Context, string, Filters) ([]string, error) { return nil, nil }
