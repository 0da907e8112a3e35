package search

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
)

const embeddingDims = 384

// Local is an in-memory char-gram vector index. Vectors are L2-normalized so
// the dot product is cosine similarity.
type Local struct {
	mu      sync.RWMutex
	entries map[string]localEntry
}

type localEntry struct {
	vec     []float32
	payload Payload
}

func NewLocal() *Local {
	return &Local{entries: map[string]localEntry{}}
}

func (l *Local) Upsert(_ context.Context, memoryID, text string, payload Payload) error {
	vec := embed(text)
	l.mu.Lock()
	l.entries[memoryID] = localEntry{vec: vec, payload: payload}
	l.mu.Unlock()
	return nil
}

func (l *Local) Delete(_ context.Context, memoryID string) error {
	l.mu.Lock()
	delete(l.entries, memoryID)
	l.mu.Unlock()
	return nil
}

// Search ranks the owner's entries by cosine similarity and returns up to
// TopK ids. Ties break on id so results are stable.
func (l *Local) Search(_ context.Context, queryText string, f Filters) ([]string, error) {
	query := embed(queryText)

	type scored struct {
		id    string
		score float64
	}
	var hits []scored

	l.mu.RLock()
	for id, e := range l.entries {
		if e.payload.UserID != f.UserID || e.payload.FriendID != f.FriendID {
			continue
		}
		if f.ExcludeKeys[e.payload.Key] {
			continue
		}
		if s := dot(query, e.vec); s > 0 {
			hits = append(hits, scored{id: id, score: s})
		}
	}
	l.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id < hits[j].id
	})
	if len(hits) > TopK {
		hits = hits[:TopK]
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids, nil
}

// embed hashes character 3-grams and whole tokens into a fixed-width vector.
func embed(text string) []float32 {
	vec := make([]float32, embeddingDims)
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return vec
	}
	window := "#" + normalized + "#"
	for i := 0; i+3 <= len(window); i++ {
		bump(vec, window[i:i+3], 1)
	}
	for _, token := range strings.Fields(normalized) {
		bump(vec, "tok:"+token, 1.25)
	}
	normalize(vec)
	return vec
}

func bump(vec []float32, key string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	vec[h.Sum64()%uint64(len(vec))] += weight
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i] * b[i])
	}
	return s
}
