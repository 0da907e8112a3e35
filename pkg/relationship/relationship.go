// Package relationship scores the user-friend bond from per-message
// evidence. Scores and stages are owned by the storage layer; this package
// computes the delta and the resulting stage.
package relationship

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/taepop/chingoo-sub000/pkg/textnorm"
)

// Stage is a fixed threshold band over the score.
type Stage string

const (
	StageStranger     Stage = "stranger"
	StageAcquaintance Stage = "acquaintance"
	StageFriend       Stage = "friend"
	StageCloseFriend  Stage = "close_friend"
)

// StageForScore maps a clamped score onto the 15/40/75 thresholds.
func StageForScore(score int) Stage {
	switch {
	case score >= 75:
		return StageCloseFriend
	case score >= 40:
		return StageFriend
	case score >= 15:
		return StageAcquaintance
	default:
		return StageStranger
	}
}

const (
	sessionGap = 4 * time.Hour

	minDelta = -2
	maxDelta = 5

	disengagedSessionThreshold = 3
)

// State is the stored relationship row for one (user, friend) pair.
type State struct {
	UserID                 string
	FriendID               string
	Score                  int
	Stage                  Stage
	SessionsCount          int
	SessionShortReplyCount int
	LastInteractionAt      time.Time
}

// Store persists relationship rows. Implemented by pkg/store, which
// serializes concurrent writers per pair.
type Store interface {
	GetRelationship(ctx context.Context, userID, friendID string) (State, bool, error)
	SaveRelationship(ctx context.Context, s State) error
}

// Update reports one scoring pass.
type Update struct {
	Delta        int
	NewScore     int
	NewStage     Stage
	WasPromoted  bool
	IsNewSession bool
}

// Evidence is what one user message contributed.
type Evidence struct {
	Disengaged          bool
	MeaningfulResponse  bool
	EmotionalDisclosure bool
	PastReference       bool
	PreferenceCount     int
}

var shortReplies = map[string]bool{
	"k": true, "ok": true, "okay": true, "idk": true, "lol": true,
	"sure": true, "yeah": true, "yep": true, "nope": true, "meh": true,
	"ㅇㅇ": true, "ㄴㄴ": true, "ㅋㅋ": true, "응": true, "아니": true, "몰라": true,
}

var emotionalPhrases = []string{
	"i've never told anyone", "i feel so alone", "i'm really scared",
	"i'm so overwhelmed", "i cried", "i can't stop thinking about",
	"너무 힘들어", "정말 외로워", "울었어", "무서워 죽겠어",
}

var pastReferencePhrases = []string{
	"remember when", "you remember", "like we said", "like you said",
	"last time we", "you told me", "we talked about",
	"저번에 말했", "지난번에", "기억나",
}

const maxPreferenceCount = 3

var preferencePattern = regexp.MustCompile(
	`i (?:really )?(?:love|like|hate|dislike|prefer|enjoy)\b|my favorite|좋아해|싫어해`)

// DetectEvidence runs the fixed heuristics over one normalized message.
func DetectEvidence(normText string, wasAiQuestion bool) Evidence {
	tokens := textnorm.TokenCount(normText)
	trimmed := strings.TrimSpace(normText)

	ev := Evidence{}
	ev.Disengaged = tokens < 4 || shortReplies[trimmed]
	ev.MeaningfulResponse = wasAiQuestion && tokens >= 10 && !ev.Disengaged
	ev.EmotionalDisclosure = containsAny(normText, emotionalPhrases)
	ev.PastReference = containsAny(normText, pastReferencePhrases)

	prefs := len(preferencePattern.FindAllString(normText, -1))
	if prefs > maxPreferenceCount {
		prefs = maxPreferenceCount
	}
	ev.PreferenceCount = prefs
	return ev
}

// DeltaFor sums the evidence contributions and clamps to [-2, +5].
// disengagedCount is the session's running disengaged-reply counter with this
// message already counted.
func DeltaFor(ev Evidence, disengagedCount int) int {
	delta := 0
	switch {
	case ev.PreferenceCount >= 2:
		delta += 2
	case ev.PreferenceCount >= 1:
		delta += 1
	}
	if ev.MeaningfulResponse {
		delta += 1
	}
	if ev.EmotionalDisclosure {
		delta += 4
	}
	if ev.PastReference {
		delta += 4
	}
	if disengagedCount >= disengagedSessionThreshold {
		delta -= 2
	}
	if delta > maxDelta {
		delta = maxDelta
	}
	if delta < minDelta {
		delta = minDelta
	}
	return delta
}

// Updater applies evidence to the stored state.
type Updater struct {
	store Store
	now   func() time.Time
}

func NewUpdater(store Store, now func() time.Time) *Updater {
	if now == nil {
		now = time.Now
	}
	return &Updater{store: store, now: now}
}

// UpdateAfterMessage scores one user message. Promotion here is purely the
// numeric threshold crossing; product-level cooldown gating lives in the
// scheduler, not here.
func (u *Updater) UpdateAfterMessage(ctx context.Context, userID, friendID, normText string, wasAiQuestion bool) (Update, error) {
	now := u.now()
	state, found, err := u.store.GetRelationship(ctx, userID, friendID)
	if err != nil {
		return Update{}, fmt.Errorf("load relationship: %w", err)
	}
	if !found {
		state = State{UserID: userID, FriendID: friendID, Stage: StageStranger}
	}

	isNewSession := state.LastInteractionAt.IsZero() || now.Sub(state.LastInteractionAt) > sessionGap
	if isNewSession {
		state.SessionsCount++
		state.SessionShortReplyCount = 0
	}

	ev := DetectEvidence(normText, wasAiQuestion)
	if ev.Disengaged {
		state.SessionShortReplyCount++
	}

	delta := DeltaFor(ev, state.SessionShortReplyCount)
	oldStage := state.Stage

	score := state.Score + delta
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	state.Score = score
	// Stage is monotonic here: a dip below the threshold never demotes.
	// Only the idle-decay sweep may lower a stage.
	if newStage := StageForScore(score); stageRank(newStage) > stageRank(state.Stage) {
		state.Stage = newStage
	}
	state.LastInteractionAt = now

	if err := u.store.SaveRelationship(ctx, state); err != nil {
		return Update{}, fmt.Errorf("save relationship: %w", err)
	}

	return Update{
		Delta:        delta,
		NewScore:     score,
		NewStage:     state.Stage,
		WasPromoted:  stageRank(state.Stage) > stageRank(oldStage),
		IsNewSession: isNewSession,
	}, nil
}

func stageRank(s Stage) int {
	switch s {
	case StageCloseFriend:
		return 3
	case StageFriend:
		return 2
	case StageAcquaintance:
		return 1
	default:
		return 0
	}
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
