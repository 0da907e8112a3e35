package persona

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/taepop/chingoo-sub000/pkg/logger"
	"github.com/taepop/chingoo-sub000/pkg/prng"
)

const (
	maxAttempts = 50
	// windowShare caps any single combo at ~7% of a rolling 24h cohort.
	windowShare    = 0.07
	windowDuration = 24 * time.Hour
)

// StableStyleParams is the frozen style block stored with an assignment.
// Validated once at assignment time and never re-validated per turn.
type StableStyleParams struct {
	SpeechStyle      SpeechStyle  `json:"speech_style"`
	HumorMode        HumorMode    `json:"humor_mode"`
	FriendEnergy     FriendEnergy `json:"friend_energy"`
	MessageLength    string       `json:"message_length"`
	EmojiFrequency   string       `json:"emoji_frequency"`
	Directness       string       `json:"directness"`
	FollowUpRate     float64      `json:"follow_up_rate"`
	LexiconBias      string       `json:"lexicon_bias"`
	PunctuationQuirk string       `json:"punctuation_quirk"`
}

// Assignment binds one (user, friend) pair to its immutable persona.
type Assignment struct {
	UserID     string
	FriendID   string
	TemplateID string
	Seed       uint32
	Style      StableStyleParams
	ComboKey   ComboKey
	AssignedAt time.Time
}

// WindowStats is a snapshot of the rolling assignment window.
type WindowStats struct {
	Total    int
	PerCombo map[string]int
}

// Log provides window accounting and atomic persistence for assignments.
// The store serializes concurrent writers; this package does not lock.
type Log interface {
	// WindowStats counts assignments with timestamp in [since, now).
	WindowStats(ctx context.Context, since time.Time) (WindowStats, error)
	// SaveAssignment persists the assignment plus its window-log entry in
	// one transaction.
	SaveAssignment(ctx context.Context, a Assignment) error
}

// CapDecision reports the candidate-inclusive anti-cloning evaluation.
type CapDecision struct {
	IsAllowed  bool
	NPrev      int
	KPrev      int
	NNew       int
	KNew       int
	MaxAllowed int
}

// CheckComboKey evaluates the cap with the candidate included: a combo is
// allowed iff k_prev+1 <= max(1, floor(0.07*(N_prev+1))). The max(1, ...)
// floor keeps small cohorts from deadlocking.
func CheckComboKey(stats WindowStats, combo ComboKey) CapDecision {
	nPrev := stats.Total
	kPrev := stats.PerCombo[combo.String()]
	nNew := nPrev + 1
	kNew := kPrev + 1
	maxAllowed := int(math.Floor(windowShare * float64(nNew)))
	if maxAllowed < 1 {
		maxAllowed = 1
	}
	return CapDecision{
		IsAllowed:  kNew <= maxAllowed,
		NPrev:      nPrev,
		KPrev:      kPrev,
		NNew:       nNew,
		KNew:       kNew,
		MaxAllowed: maxAllowed,
	}
}

// Assigner samples personas at onboarding time.
type Assigner struct {
	log Log
	now func() time.Time
	// seedFn exists so tests can pin the otherwise crypto-random seed.
	seedFn func() uint32
}

func NewAssigner(log Log, now func() time.Time) *Assigner {
	if now == nil {
		now = time.Now
	}
	return &Assigner{log: log, now: now, seedFn: randomSeed}
}

// Assign samples a compliant persona for the pair and persists it with its
// window-log entry. Called once per (user, friend); the result is frozen.
func (a *Assigner) Assign(ctx context.Context, userID, friendID string) (Assignment, error) {
	now := a.now()
	stats, err := a.log.WindowStats(ctx, now.Add(-windowDuration))
	if err != nil {
		return Assignment{}, fmt.Errorf("load assignment window: %w", err)
	}

	seed := a.seedFn()
	rng := prng.New(seed)

	assignment, ok := sampleCompliant(rng, stats)
	if !ok {
		assignment = fallbackLeastUsed(rng, stats)
		logger.InfoCF("persona", "sampling exhausted, using least-used fallback", map[string]interface{}{
			"user_id":   userID,
			"friend_id": friendID,
			"combo_key": assignment.ComboKey.String(),
		})
	}

	assignment.UserID = userID
	assignment.FriendID = friendID
	assignment.Seed = seed
	assignment.AssignedAt = now

	if err := a.log.SaveAssignment(ctx, assignment); err != nil {
		return Assignment{}, fmt.Errorf("save persona assignment: %w", err)
	}
	return assignment, nil
}

// sampleCompliant runs the attempt loop: pick a template, mutate exactly two
// style categories away from the defaults, and test the cap. A failed check
// mutates the remaining category and rechecks once before the next attempt.
func sampleCompliant(rng *prng.Rand, stats WindowStats) (Assignment, bool) {
	categories := []int{0, 1, 2} // speech, humor, energy

	for attempt := 0; attempt < maxAttempts; attempt++ {
		tmpl := prng.Pick(rng, Catalog)
		style := styleFromTemplate(tmpl)

		mutated := prng.Sample(rng, categories, 2)
		for _, cat := range mutated {
			mutateCategory(rng, &style, tmpl, cat)
		}

		combo := ComboKey{Archetype: tmpl.Archetype, HumorMode: style.HumorMode, FriendEnergy: style.FriendEnergy}
		if CheckComboKey(stats, combo).IsAllowed {
			return finishAssignment(rng, tmpl, style, combo), true
		}

		third := remainingCategory(mutated)
		mutateCategory(rng, &style, tmpl, third)
		combo = ComboKey{Archetype: tmpl.Archetype, HumorMode: style.HumorMode, FriendEnergy: style.FriendEnergy}
		if CheckComboKey(stats, combo).IsAllowed {
			return finishAssignment(rng, tmpl, style, combo), true
		}
	}
	return Assignment{}, false
}

// fallbackLeastUsed deterministically picks the least-represented combo in
// the window. The shuffle draws from the same PRNG stream so the fallback
// path is auditable from the stored seed.
func fallbackLeastUsed(rng *prng.Rand, stats WindowStats) Assignment {
	combos := AllComboKeys()
	prng.Shuffle(rng, combos)

	best := combos[0]
	bestCount := stats.PerCombo[best.String()]
	for _, c := range combos[1:] {
		count := stats.PerCombo[c.String()]
		if count < bestCount || (count == bestCount && c.String() < best.String()) {
			best = c
			bestCount = count
		}
	}

	tmpl := templateByArchetype(best.Archetype)
	style := styleFromTemplate(tmpl)
	style.HumorMode = best.HumorMode
	style.FriendEnergy = best.FriendEnergy
	return finishAssignment(rng, tmpl, style, best)
}

func styleFromTemplate(t Template) StableStyleParams {
	return StableStyleParams{
		SpeechStyle:      t.SpeechStyle,
		HumorMode:        t.HumorMode,
		FriendEnergy:     t.FriendEnergy,
		MessageLength:    t.MessageLength,
		EmojiFrequency:   t.EmojiFrequency,
		Directness:       t.Directness,
		LexiconBias:      t.LexiconBias,
		PunctuationQuirk: t.PunctuationQuirk,
	}
}

// mutateCategory rejection-samples a value different from the template
// default for the given category index.
func mutateCategory(rng *prng.Rand, style *StableStyleParams, tmpl Template, cat int) {
	switch cat {
	case 0:
		style.SpeechStyle = prng.PickExcluding(rng, AllSpeechStyles, tmpl.SpeechStyle)
	case 1:
		style.HumorMode = prng.PickExcluding(rng, AllHumorModes, tmpl.HumorMode)
	case 2:
		style.FriendEnergy = prng.PickExcluding(rng, AllEnergies, tmpl.FriendEnergy)
	}
}

func remainingCategory(mutated []int) int {
	sum := 0
	for _, c := range mutated {
		sum += c
	}
	return 3 - sum
}

func finishAssignment(rng *prng.Rand, tmpl Template, style StableStyleParams, combo ComboKey) Assignment {
	// Follow-up rate is the one continuous parameter; quantized so the
	// stored value is stable across float formatting.
	style.FollowUpRate = math.Round((0.20+0.50*rng.Next())*100) / 100
	return Assignment{
		TemplateID: tmpl.ID,
		Style:      style,
		ComboKey:   combo,
	}
}

func randomSeed() uint32 {
	var buf [4]byte
	if _, err := crand.Read(buf[:]); err != nil {
		// Degenerate fallback; crypto/rand failing means the host is broken.
		return uint32(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint32(buf[:])
}

// SortedComboStrings returns the canonical ordering of the combo space,
// useful for audits and tests.
func SortedComboStrings() []string {
	combos := AllComboKeys()
	out := make([]string, len(combos))
	for i, c := range combos {
		out[i] = c.String()
	}
	sort.Strings(out)
	return out
}
