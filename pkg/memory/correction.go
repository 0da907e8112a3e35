package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taepop/chingoo-sub000/pkg/logger"
	"github.com/taepop/chingoo-sub000/pkg/search"
)

const invalidReasonUserCorrection = "user_correction"

// CorrectionResult reports what a correction command did.
type CorrectionResult struct {
	InvalidatedIDs     []string
	NeedsClarification bool
	SuppressedKeys     []string
}

var invalidatePhrases = []string{
	"that's not true", "thats not true", "that is not true",
	"that's wrong", "thats wrong", "you're wrong about that",
	"forget that", "forget it", "don't remember that", "dont remember that",
	"i never said that", "that's not right",
	"그거 아니야", "잊어버려", "기억하지 마", "틀렸어",
}

// forgetPhrases is the subset that also suppresses the key from future
// surfacing.
var forgetPhrases = []string{
	"forget", "don't remember", "dont remember", "잊어", "기억하지 마",
}

// IsCorrection reports whether the text is a correction command at all.
func IsCorrection(normNoPunct string) bool {
	for _, p := range invalidatePhrases {
		if strings.Contains(normNoPunct, p) {
			return true
		}
	}
	return false
}

// Corrector invalidates surfaced memories on user command. A correction may
// only ever target ids the previous assistant message actually surfaced;
// anything else asks for clarification instead of guessing.
type Corrector struct {
	store Store
	index search.Index
	now   func() time.Time
}

func NewCorrector(store Store, index search.Index, now func() time.Time) *Corrector {
	if index == nil {
		index = search.Noop{}
	}
	if now == nil {
		now = time.Now
	}
	return &Corrector{store: store, index: index, now: now}
}

// HandleCorrection targets the LAST surfaced id of the previous assistant
// message (most recent mention wins). With no surfaced ids it invalidates
// nothing and requests clarification.
func (c *Corrector) HandleCorrection(ctx context.Context, userID, conversationID, normNoPunct string) (CorrectionResult, error) {
	ids, found, err := c.store.LastAssistantSurfacedIDs(ctx, conversationID)
	if err != nil {
		return CorrectionResult{}, fmt.Errorf("load previous assistant message: %w", err)
	}
	if !found || len(ids) == 0 {
		return CorrectionResult{NeedsClarification: true}, nil
	}

	target := ids[len(ids)-1]
	rec, ok, err := c.store.GetRecord(ctx, target)
	if err != nil {
		return CorrectionResult{}, fmt.Errorf("load memory %s: %w", target, err)
	}
	if !ok || rec.Status != StatusActive {
		return CorrectionResult{NeedsClarification: true}, nil
	}

	if err := c.store.InvalidateRecord(ctx, rec.ID, invalidReasonUserCorrection, c.now()); err != nil {
		return CorrectionResult{}, fmt.Errorf("invalidate memory %s: %w", rec.ID, err)
	}
	if err := c.index.Delete(ctx, rec.ID); err != nil {
		logger.WarnCF("memory", "de-index invalidated record failed", map[string]interface{}{
			"memory_id": rec.ID, "error": err.Error(),
		})
	}

	result := CorrectionResult{InvalidatedIDs: []string{rec.ID}}
	if impliesForget(normNoPunct) {
		if err := c.store.AddSuppressedKey(ctx, userID, rec.Key); err != nil {
			return result, fmt.Errorf("suppress key %s: %w", rec.Key, err)
		}
		result.SuppressedKeys = []string{rec.Key}
	}
	return result, nil
}

func impliesForget(normNoPunct string) bool {
	for _, p := range forgetPhrases {
		if strings.Contains(normNoPunct, p) {
			return true
		}
	}
	return false
}
