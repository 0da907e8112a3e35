package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taepop/chingoo-sub000/pkg/memory"
	"github.com/taepop/chingoo-sub000/pkg/persona"
	"github.com/taepop/chingoo-sub000/pkg/relationship"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func turnMessages(clientID string, at time.Time) (Message, Message) {
	userMsg := Message{
		ID: "um-" + clientID, ClientMessageID: clientID, ConversationID: "conv-1",
		UserID: "u1", FriendID: "f1", Role: RoleUser, Content: "hello",
		Status: StatusCompleted, CreatedAt: at,
	}
	assistantMsg := Message{
		ID: "am-" + clientID, ConversationID: "conv-1",
		UserID: "u1", FriendID: "f1", Role: RoleAssistant, Content: "hi there, how are you?",
		OpenerNorm: "hi there how are you", SurfacedMemoryIDs: []string{"mem-1"},
		Status: StatusCompleted, CreatedAt: at.Add(time.Second),
	}
	return userMsg, assistantMsg
}

func TestInsertTurn_DuplicateClientID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	u1, a1 := turnMessages("client-1", at)
	require.NoError(t, s.InsertTurn(ctx, u1, a1, false))

	u2, a2 := turnMessages("client-1", at.Add(time.Minute))
	u2.ID, a2.ID = "um-retry", "am-retry"
	err := s.InsertTurn(ctx, u2, a2, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateMessage))

	// the losing transaction must leave no partial rows
	_, found, err := s.GetMessage(ctx, "am-retry")
	require.NoError(t, err)
	assert.False(t, found)

	got, found, err := s.GetMessageByClientID(ctx, "conv-1", "client-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "um-client-1", got.ID)
}

func TestInsertTurn_ActivatesOnboardingUserAtomically(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.EnsureUser(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, s.SetUserState(ctx, "u1", "onboarding"))

	u1, a1 := turnMessages("c1", at)
	require.NoError(t, s.InsertTurn(ctx, u1, a1, true))

	u, err := s.EnsureUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "active", u.State, "the flip commits with the turn")

	// A losing duplicate insert must not touch user state either.
	require.NoError(t, s.SetUserState(ctx, "u1", "onboarding"))
	u2, a2 := turnMessages("c1", at.Add(time.Minute))
	u2.ID, a2.ID = "um-retry", "am-retry"
	err = s.InsertTurn(ctx, u2, a2, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateMessage))

	u, err = s.EnsureUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "onboarding", u.State, "rollback covers the activation")
}

func TestLastAssistantSurfacedIDs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, found, err := s.LastAssistantSurfacedIDs(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, found)

	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	u1, a1 := turnMessages("c1", at)
	require.NoError(t, s.InsertTurn(ctx, u1, a1, false))

	u2, a2 := turnMessages("c2", at.Add(time.Hour))
	a2.SurfacedMemoryIDs = []string{"mem-2", "mem-3"}
	require.NoError(t, s.InsertTurn(ctx, u2, a2, false))

	ids, found, err := s.LastAssistantSurfacedIDs(ctx, "conv-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"mem-2", "mem-3"}, ids, "newest assistant message wins")
}

func TestRecentAssistantMessages_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for i, clientID := range []string{"c1", "c2", "c3"} {
		u, a := turnMessages(clientID, at.Add(time.Duration(i)*time.Hour))
		a.Content = clientID + " reply"
		require.NoError(t, s.InsertTurn(ctx, u, a, false))
	}

	msgs, err := s.RecentAssistantMessages(ctx, "conv-1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "c3 reply", msgs[0].Content)
	assert.Equal(t, "c2 reply", msgs[1].Content)
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	rec := memory.Record{
		ID: "mem-1", UserID: "u1", FriendID: "f1", Type: memory.TypePreference,
		Key: "pref:pizza", Value: "like|pizza", Confidence: 0.60,
		Status: memory.StatusActive, SourceMessageIDs: []string{"m1"},
		CreatedAt: at, LastConfirmedAt: at,
	}
	require.NoError(t, s.InsertRecord(ctx, rec))

	got, found, err := s.GetActiveByKey(ctx, "u1", "f1", "pref:pizza")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec, got)

	require.NoError(t, s.MergeConfirmation(ctx, "mem-1", "m2", 0.75, at.Add(time.Hour)))
	got, _, err = s.GetRecord(ctx, "mem-1")
	require.NoError(t, err)
	assert.Equal(t, 0.75, got.Confidence)
	assert.Equal(t, []string{"m1", "m2"}, got.SourceMessageIDs)

	require.NoError(t, s.SupersedeRecord(ctx, "mem-1", "mem-2", at.Add(2*time.Hour)))
	_, found, err = s.GetActiveByKey(ctx, "u1", "f1", "pref:pizza")
	require.NoError(t, err)
	assert.False(t, found, "superseded rows leave the active set")

	got, _, err = s.GetRecord(ctx, "mem-1")
	require.NoError(t, err)
	assert.Equal(t, memory.StatusSuperseded, got.Status)
	assert.Equal(t, "mem-2", got.SupersededBy)
}

func TestSuppressedKeys(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.AddSuppressedKey(ctx, "u1", "pref:pizza"))
	require.NoError(t, s.AddSuppressedKey(ctx, "u1", "pref:pizza"), "re-adding is a no-op")

	keys, err := s.SuppressedKeys(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, keys["pref:pizza"])

	keys, err = s.SuppressedKeys(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRelationshipRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, found, err := s.GetRelationship(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.False(t, found)

	st := relationship.State{
		UserID: "u1", FriendID: "f1", Score: 42, Stage: relationship.StageFriend,
		SessionsCount: 3, SessionShortReplyCount: 1,
		LastInteractionAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveRelationship(ctx, st))

	got, found, err := s.GetRelationship(ctx, "u1", "f1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, st, got)
}

func TestDecayIdleRelationships(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	old := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	fresh := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRelationship(ctx, relationship.State{
		UserID: "u1", FriendID: "f1", Score: 41, Stage: relationship.StageFriend, LastInteractionAt: old,
	}))
	require.NoError(t, s.SaveRelationship(ctx, relationship.State{
		UserID: "u2", FriendID: "f1", Score: 50, Stage: relationship.StageFriend, LastInteractionAt: fresh,
	}))

	n, err := s.DecayIdleRelationships(ctx, fresh.Add(-24*time.Hour).UnixMilli(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _, err := s.GetRelationship(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.Equal(t, 39, got.Score)
	assert.Equal(t, relationship.StageAcquaintance, got.Stage, "stage recomputed after decay")

	got, _, err = s.GetRelationship(ctx, "u2", "f1")
	require.NoError(t, err)
	assert.Equal(t, 50, got.Score, "recently active pairs untouched")
}

func TestPersonaAssignmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	a := persona.Assignment{
		UserID: "u1", FriendID: "f1", TemplateID: "dw-01", Seed: 7,
		Style: persona.StableStyleParams{
			SpeechStyle: persona.SpeechShortPunchy, HumorMode: persona.HumorDry,
			FriendEnergy: persona.EnergyChill, MessageLength: "short",
			EmojiFrequency: "none", Directness: "blunt", FollowUpRate: 0.35,
			LexiconBias: "deadpan", PunctuationQuirk: "none",
		},
		ComboKey: persona.ComboKey{
			Archetype: persona.ArchetypeDryWit, HumorMode: persona.HumorDry,
			FriendEnergy: persona.EnergyChill,
		},
		AssignedAt: at,
	}
	require.NoError(t, s.SaveAssignment(ctx, a))

	got, found, err := s.GetAssignment(ctx, "u1", "f1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, a, got)

	stats, err := s.WindowStats(ctx, at.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.PerCombo[a.ComboKey.String()])

	stats, err = s.WindowStats(ctx, at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total, "assignments before the window are excluded")
}

func TestTrimPersonaWindow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	old := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	fresh := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	combo := persona.ComboKey{
		Archetype: persona.ArchetypeDryWit, HumorMode: persona.HumorDry,
		FriendEnergy: persona.EnergyChill,
	}
	require.NoError(t, s.SaveAssignment(ctx, persona.Assignment{
		UserID: "u1", FriendID: "f1", TemplateID: "dw-01", Seed: 1,
		ComboKey: combo, AssignedAt: old,
	}))
	require.NoError(t, s.SaveAssignment(ctx, persona.Assignment{
		UserID: "u2", FriendID: "f1", TemplateID: "dw-01", Seed: 2,
		ComboKey: combo, AssignedAt: fresh,
	}))

	n, err := s.TrimPersonaWindow(ctx, toMS(old.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err := s.WindowStats(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total, "only the fresh window row survives")

	// Frozen assignments are never trimmed.
	_, found, err := s.GetAssignment(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestEnsureUserAndState(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	u, err := s.EnsureUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "created", u.State)
	assert.Equal(t, "unknown", u.AgeBand)

	require.NoError(t, s.SetUserState(ctx, "u1", "onboarding"))
	require.NoError(t, s.SetUserAgeBand(ctx, "u1", "18+"))

	u, err = s.EnsureUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "onboarding", u.State, "ensure must not reset existing rows")
	assert.Equal(t, "18+", u.AgeBand)
}
