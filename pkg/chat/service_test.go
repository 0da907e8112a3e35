package chat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taepop/chingoo-sub000/pkg/llm"
	"github.com/taepop/chingoo-sub000/pkg/memory"
	"github.com/taepop/chingoo-sub000/pkg/persona"
	"github.com/taepop/chingoo-sub000/pkg/postproc"
	"github.com/taepop/chingoo-sub000/pkg/relationship"
	"github.com/taepop/chingoo-sub000/pkg/routing"
	"github.com/taepop/chingoo-sub000/pkg/search"
	"github.com/taepop/chingoo-sub000/pkg/store"
)

type fixture struct {
	store   *store.SQLiteStore
	gen     *llm.Scripted
	index   *search.Local
	service *Service
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	f := &fixture{
		store: s,
		gen:   &llm.Scripted{Replies: []string{"nice to meet you! what's something you're into these days?"}},
		now:   time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}

	nowFn := func() time.Time { return f.now }
	f.index = search.NewLocal()
	f.service = NewService(Deps{
		Store:     s,
		Generator: f.gen,
		Index:     f.index,
		Surfacer:  memory.NewSurfacer(s),
		Persister: memory.NewPersister(s, f.index, nowFn),
		Corrector: memory.NewCorrector(s, f.index, nowFn),
		Updater:   relationship.NewUpdater(s, nowFn),
		Processor: postproc.NewProcessor(s, nil),
		Now:       nowFn,
	})
	return f
}

func (f *fixture) activeUser(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.store.EnsureUser(ctx, id)
	require.NoError(t, err)
	require.NoError(t, f.store.SetUserState(ctx, id, "active"))
	f.assignPersona(t, id, "f1")
}

func (f *fixture) assignPersona(t *testing.T, userID, friendID string) {
	t.Helper()
	require.NoError(t, f.store.SaveAssignment(context.Background(), persona.Assignment{
		UserID: userID, FriendID: friendID, TemplateID: "dw-01", Seed: 7,
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
		AssignedAt: f.now.Add(-time.Hour),
	}))
}

func turn(clientID, text string) TurnInput {
	return TurnInput{
		UserID: "u1", FriendID: "f1", ConversationID: "conv-1",
		ClientMessageID: clientID, Text: text,
	}
}

func TestProcessTurn_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.ProcessTurn(context.Background(), TurnInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestProcessTurn_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.ProcessTurn(context.Background(), turn("c1", "hello"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLifecycle))
}

func TestProcessTurn_CreatedUserGetsRefusalWithoutHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.store.EnsureUser(ctx, "u1")
	require.NoError(t, err)

	res, err := f.service.ProcessTurn(ctx, turn("c1", "hello there"))
	require.NoError(t, err)
	assert.Equal(t, routing.PipelineRefusal, res.Pipeline)
	assert.Equal(t, "created", res.UserState)
	assert.False(t, res.Persisted)

	_, found, err := f.store.GetMessageByClientID(ctx, "conv-1", "c1")
	require.NoError(t, err)
	assert.False(t, found, "pre-onboarding messages never become history")
}

func TestProcessTurn_OnboardingTurnActivatesUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.store.EnsureUser(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, f.store.SetUserState(ctx, "u1", "onboarding"))
	f.assignPersona(t, "u1", "f1")

	res, err := f.service.ProcessTurn(ctx, turn("c1", "Hello!"))
	require.NoError(t, err)
	assert.Equal(t, routing.PipelineOnboardingChat, res.Pipeline)
	assert.True(t, res.Persisted)
	assert.NotEmpty(t, res.Content)
	assert.Equal(t, "active", res.UserState, "the activating turn reports the post-turn state")

	u, _, err := f.store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "active", u.State, "first completed turn finishes onboarding")

	userMsg, found, err := f.store.GetMessageByClientID(ctx, "conv-1", "c1")
	require.NoError(t, err)
	require.True(t, found)
	assistantMsg, found, err := f.store.GetMessage(ctx, res.AssistantMessageID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, userMsg.TraceID, assistantMsg.TraceID, "both rows share one trace id")
	assert.Equal(t, AssistantMessageID(userMsg.ID), assistantMsg.ID)
}

func TestProcessTurn_ActiveUserWithoutPersonaIsForbidden(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.store.EnsureUser(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, f.store.SetUserState(ctx, "u1", "active"))

	_, err = f.service.ProcessTurn(ctx, turn("c1", "hello there friend"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLifecycle))

	_, found, err := f.store.GetMessageByClientID(ctx, "conv-1", "c1")
	require.NoError(t, err)
	assert.False(t, found, "no turn commits without a persona")
}

func TestProcessTurn_VectorSearchSkipsSuppressedKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.activeUser(t, "u1")
	require.NoError(t, f.store.AddSuppressedKey(ctx, "u1", "pref:pizza"))

	// Stale index entry for a forgotten key: only the vector path could
	// resurface it.
	require.NoError(t, f.index.Upsert(ctx, "mem-1", "pref:pizza like pizza",
		search.Payload{UserID: "u1", FriendID: "f1", Key: "pref:pizza"}))

	res, err := f.service.ProcessTurn(ctx, turn("c1", "thinking about pizza again tonight honestly"))
	require.NoError(t, err)
	assert.NotContains(t, res.SurfacedMemoryIDs, "mem-1", "forgotten keys stay out of vector results")
}

func TestProcessTurn_ReplayReturnsCommittedResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.activeUser(t, "u1")

	first, err := f.service.ProcessTurn(ctx, turn("c1", "i love pizza so much"))
	require.NoError(t, err)
	require.True(t, first.Persisted)

	replay, err := f.service.ProcessTurn(ctx, turn("c1", "i love pizza so much"))
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.AssistantMessageID, replay.AssistantMessageID)
	assert.Equal(t, first.Content, replay.Content)
	assert.Equal(t, 0, countAssistantRows(t, f, "conv-1"), "replay must not double-process")
}

func countAssistantRows(t *testing.T, f *fixture, conversationID string) int {
	t.Helper()
	msgs, err := f.store.RecentAssistantMessages(context.Background(), conversationID, 50)
	require.NoError(t, err)
	return len(msgs) - 1
}

func TestProcessTurn_GenerationFailureAbortsBeforeWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.activeUser(t, "u1")
	f.gen.Err = errors.New("quota exceeded")

	_, err := f.service.ProcessTurn(ctx, turn("c1", "hello friend, how are you today"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeneration))

	_, found, err := f.store.GetMessageByClientID(ctx, "conv-1", "c1")
	require.NoError(t, err)
	assert.False(t, found, "failed generation must leave no partial turn")
}

func TestProcessTurn_ExtractsMemoriesAfterCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.activeUser(t, "u1")

	res, err := f.service.ProcessTurn(ctx, turn("c1", "i love pizza and my name is Dana"))
	require.NoError(t, err)
	require.True(t, res.Persisted)

	rec, found, err := f.store.GetActiveByKey(ctx, "u1", "f1", "pref:pizza")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "like|pizza", rec.Value)
	assert.Equal(t, []string{res.UserMessageID}, rec.SourceMessageIDs)

	_, found, err = f.store.GetActiveByKey(ctx, "u1", "f1", "fact:name")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestProcessTurn_RelationshipUpdatesAfterCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.activeUser(t, "u1")

	_, err := f.service.ProcessTurn(ctx, turn("c1", "i love pizza and i love long evening walks"))
	require.NoError(t, err)

	state, found, err := f.store.GetRelationship(ctx, "u1", "f1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, state.Score, "two preferences score +2")
	assert.Equal(t, 1, state.SessionsCount)
}

func TestProcessTurn_HardRefuseSkipsMemoryAndRelationship(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.activeUser(t, "u1")
	f.gen.Replies = []string{"i can't go there, but i'm around if you want to talk about anything else."}

	res, err := f.service.ProcessTurn(ctx, turn("c1", "where can i buy drugs tonight"))
	require.NoError(t, err)
	assert.Equal(t, routing.PipelineRefusal, res.Pipeline)

	_, found, err := f.store.GetRelationship(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.False(t, found, "refused turns never touch the relationship")
}

func TestProcessTurn_CorrectionInvalidatesSurfacedMemory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.activeUser(t, "u1")

	// Seed a memory and a committed assistant message that surfaced it.
	rec := memory.Record{
		ID: "mem-1", UserID: "u1", FriendID: "f1", Type: memory.TypePreference,
		Key: "pref:pizza", Value: "like|pizza", Confidence: 0.60,
		Status: memory.StatusActive, SourceMessageIDs: []string{"m0"},
		CreatedAt: f.now.Add(-time.Hour), LastConfirmedAt: f.now.Add(-time.Hour),
	}
	require.NoError(t, f.store.InsertRecord(ctx, rec))
	require.NoError(t, f.store.InsertTurn(ctx,
		store.Message{ID: "um-0", ClientMessageID: "c0", ConversationID: "conv-1",
			UserID: "u1", FriendID: "f1", Role: store.RoleUser, Content: "hi",
			Status: store.StatusCompleted, CreatedAt: f.now.Add(-time.Minute)},
		store.Message{ID: "am-0", ConversationID: "conv-1", UserID: "u1", FriendID: "f1",
			Role: store.RoleAssistant, Content: "you like pizza right?",
			SurfacedMemoryIDs: []string{"mem-1"},
			Status:            store.StatusCompleted, CreatedAt: f.now.Add(-time.Minute)},
		false,
	))

	res, err := f.service.ProcessTurn(ctx, turn("c1", "forget that please"))
	require.NoError(t, err)
	require.True(t, res.Persisted)
	assert.Equal(t, ackForgotten, res.Content)

	got, _, err := f.store.GetRecord(ctx, "mem-1")
	require.NoError(t, err)
	assert.Equal(t, memory.StatusInvalid, got.Status)
	assert.Equal(t, "user_correction", got.InvalidReason)

	keys, err := f.store.SuppressedKeys(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, keys["pref:pizza"])
}

func TestProcessTurn_CorrectionWithNothingSurfacedAsksForClarification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.activeUser(t, "u1")

	res, err := f.service.ProcessTurn(ctx, turn("c1", "that's not true"))
	require.NoError(t, err)
	assert.Equal(t, ackNeedsClarification, res.Content)
}

func TestProcessTurn_DistressRoutesToEmotionalSupport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.activeUser(t, "u1")
	f.gen.Replies = []string{"that sounds really heavy. want to tell me what happened today?"}

	res, err := f.service.ProcessTurn(ctx, turn("c1", "i feel so overwhelmed by everything lately"))
	require.NoError(t, err)
	assert.Equal(t, routing.PipelineEmotionalSupport, res.Pipeline)
}

func TestProcessTurn_SurfacedIDsRecordedOnAssistantMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.activeUser(t, "u1")

	rec := memory.Record{
		ID: "mem-1", UserID: "u1", FriendID: "f1", Type: memory.TypePreference,
		Key: "pref:hiking", Value: "like|hiking", Confidence: 0.60,
		Status: memory.StatusActive, CreatedAt: f.now.Add(-time.Hour), LastConfirmedAt: f.now.Add(-time.Hour),
	}
	require.NoError(t, f.store.InsertRecord(ctx, rec))

	res, err := f.service.ProcessTurn(ctx, turn("c1", "i went hiking again this weekend"))
	require.NoError(t, err)
	assert.Equal(t, []string{"mem-1"}, res.SurfacedMemoryIDs)

	msg, found, err := f.store.GetMessage(ctx, res.AssistantMessageID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"mem-1"}, msg.SurfacedMemoryIDs)
}
