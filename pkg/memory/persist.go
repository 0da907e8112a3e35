package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taepop/chingoo-sub000/pkg/logger"
	"github.com/taepop/chingoo-sub000/pkg/search"
)

const (
	mergeConfidenceStep = 0.15

	// A preference that flips stance starts below the extraction default;
	// the contradiction itself is evidence the stance is unstable.
	contradictionPenalty = 0.15
	minConfidence        = 0.05
)

// Persister applies the dedup/conflict rules and keeps the search index in
// sync. Index writes are best-effort; a failed upsert never fails the turn.
type Persister struct {
	store Store
	index search.Index
	now   func() time.Time
}

func NewPersister(store Store, index search.Index, now func() time.Time) *Persister {
	if index == nil {
		index = search.Noop{}
	}
	if now == nil {
		now = time.Now
	}
	return &Persister{store: store, index: index, now: now}
}

// Persist writes one candidate and returns the id of the row that now holds
// it, whether merged into an existing row or freshly created.
func (p *Persister) Persist(ctx context.Context, userID, friendID, sourceMessageID string, c Candidate) (string, error) {
	now := p.now()
	existing, found, err := p.store.GetActiveByKey(ctx, userID, friendID, c.Key)
	if err != nil {
		return "", fmt.Errorf("lookup memory key %s: %w", c.Key, err)
	}

	if found && existing.Value == c.Value {
		conf := existing.Confidence + mergeConfidenceStep
		if conf > 1.0 {
			conf = 1.0
		}
		if err := p.store.MergeConfirmation(ctx, existing.ID, sourceMessageID, conf, now); err != nil {
			return "", fmt.Errorf("merge memory %s: %w", existing.ID, err)
		}
		return existing.ID, nil
	}

	conflicting := found && conflicts(existing, c)
	conf := c.Confidence
	if conflicting && existing.Type == TypePreference {
		conf -= contradictionPenalty
		if conf < minConfidence {
			conf = minConfidence
		}
	}

	rec := Record{
		ID:               uuid.NewString(),
		UserID:           userID,
		FriendID:         friendID,
		Type:             c.Type,
		Key:              c.Key,
		Value:            c.Value,
		Confidence:       conf,
		Status:           StatusActive,
		SourceMessageIDs: []string{sourceMessageID},
		CreatedAt:        now,
		LastConfirmedAt:  now,
	}
	if err := p.store.InsertRecord(ctx, rec); err != nil {
		return "", fmt.Errorf("insert memory %s: %w", c.Key, err)
	}

	if conflicting {
		if err := p.store.SupersedeRecord(ctx, existing.ID, rec.ID, now); err != nil {
			return "", fmt.Errorf("supersede memory %s: %w", existing.ID, err)
		}
		if err := p.index.Delete(ctx, existing.ID); err != nil {
			logger.WarnCF("memory", "de-index superseded record failed", map[string]interface{}{
				"memory_id": existing.ID, "error": err.Error(),
			})
		}
	}

	if err := p.index.Upsert(ctx, rec.ID, indexText(rec), search.Payload{
		UserID: userID, FriendID: friendID, Key: rec.Key,
	}); err != nil {
		logger.WarnCF("memory", "index upsert failed", map[string]interface{}{
			"memory_id": rec.ID, "error": err.Error(),
		})
	}
	return rec.ID, nil
}

// PersistAll persists candidates in order, skipping keys the user suppressed.
func (p *Persister) PersistAll(ctx context.Context, userID, friendID, sourceMessageID string, cands []Candidate) ([]string, error) {
	suppressed, err := p.store.SuppressedKeys(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load suppressed keys: %w", err)
	}
	ids := make([]string, 0, len(cands))
	for _, c := range cands {
		if suppressed[c.Key] {
			continue
		}
		id, err := p.Persist(ctx, userID, friendID, sourceMessageID, c)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// conflicts reports whether a same-key, different-value pair supersedes:
// facts always do, preferences only on opposite stance.
func conflicts(existing Record, c Candidate) bool {
	if existing.Type == TypeFact {
		return true
	}
	if existing.Type != TypePreference {
		return false
	}
	return stanceOf(existing.Value) != stanceOf(c.Value) && stanceOf(c.Value) != ""
}

func stanceOf(value string) string {
	i := strings.IndexByte(value, '|')
	if i < 0 {
		return ""
	}
	return value[:i]
}

func indexText(r Record) string {
	return r.Key + " " + strings.ReplaceAll(r.Value, "|", " ")
}

// Reindex rebuilds the search index from the active records of one pair.
// Needed after process restart when the index lives in memory.
func (p *Persister) Reindex(ctx context.Context, userID, friendID string) (int, error) {
	records, err := p.store.ListActive(ctx, userID, friendID, 0)
	if err != nil {
		return 0, fmt.Errorf("list active memories: %w", err)
	}
	indexed := 0
	for _, rec := range records {
		if err := p.index.Upsert(ctx, rec.ID, indexText(rec), search.Payload{
			UserID: userID, FriendID: friendID, Key: rec.Key,
		}); err != nil {
			logger.WarnCF("memory", "reindex upsert failed", map[string]interface{}{
				"memory_id": rec.ID, "error": err.Error(),
			})
			continue
		}
		indexed++
	}
	return indexed, nil
}
