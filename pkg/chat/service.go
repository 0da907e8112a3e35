// Package chat is the turn orchestrator: it runs the deterministic
// pre-generation pipeline, calls the generator, gates the draft, commits the
// turn atomically, then fires the best-effort side effects.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taepop/chingoo-sub000/pkg/llm"
	"github.com/taepop/chingoo-sub000/pkg/logger"
	"github.com/taepop/chingoo-sub000/pkg/memory"
	"github.com/taepop/chingoo-sub000/pkg/persona"
	"github.com/taepop/chingoo-sub000/pkg/postproc"
	"github.com/taepop/chingoo-sub000/pkg/relationship"
	"github.com/taepop/chingoo-sub000/pkg/routing"
	"github.com/taepop/chingoo-sub000/pkg/safety"
	"github.com/taepop/chingoo-sub000/pkg/search"
	"github.com/taepop/chingoo-sub000/pkg/store"
	"github.com/taepop/chingoo-sub000/pkg/textnorm"
	"github.com/taepop/chingoo-sub000/pkg/topic"
)

// assistantNamespace derives the assistant message id from the user message
// id, so a replayed turn can locate its committed reply without extra state.
var assistantNamespace = uuid.MustParse("7d7af1f6-5a63-4a49-8a2f-3c1f0c9e5a10")

const historyLimit = 10

// Store is the persistence surface the orchestrator needs. Satisfied by
// store.SQLiteStore.
type Store interface {
	GetUser(ctx context.Context, id string) (store.User, bool, error)

	InsertTurn(ctx context.Context, userMsg, assistantMsg store.Message, activateUser bool) error
	GetMessage(ctx context.Context, id string) (store.Message, bool, error)
	GetMessageByClientID(ctx context.Context, conversationID, clientMessageID string) (store.Message, bool, error)
	RecentAssistantMessages(ctx context.Context, conversationID string, limit int) ([]postproc.PriorMessage, error)
	RecentUserMessages(ctx context.Context, conversationID string, limit int) ([]store.Message, error)

	GetAssignment(ctx context.Context, userID, friendID string) (persona.Assignment, bool, error)
	GetRelationship(ctx context.Context, userID, friendID string) (relationship.State, bool, error)
	GetRecord(ctx context.Context, id string) (memory.Record, bool, error)
	SuppressedKeys(ctx context.Context, userID string) (map[string]bool, error)
}

// TurnInput is one user message to process.
type TurnInput struct {
	UserID          string
	FriendID        string
	ConversationID  string
	ClientMessageID string
	Text            string
	IsRetention     bool
}

// TurnResult is the committed outcome of one turn. UserState is the user's
// lifecycle state after the turn, so clients see the onboarding flip on the
// activating turn itself.
type TurnResult struct {
	UserMessageID      string
	AssistantMessageID string
	Content            string
	Pipeline           routing.Pipeline
	SurfacedMemoryIDs  []string
	RequiresCrisisFlow bool
	UserState          string
	TraceID            string
	Replayed           bool
	Persisted          bool
}

// Service orchestrates turns.
type Service struct {
	store     Store
	generator llm.Generator
	index     search.Index

	surfacer  *memory.Surfacer
	persister *memory.Persister
	corrector *memory.Corrector
	updater   *relationship.Updater
	processor *postproc.Processor

	now   func() time.Time
	newID func() string
}

// Deps bundles the collaborators for NewService.
type Deps struct {
	Store     Store
	Generator llm.Generator
	Index     search.Index

	Surfacer  *memory.Surfacer
	Persister *memory.Persister
	Corrector *memory.Corrector
	Updater   *relationship.Updater
	Processor *postproc.Processor

	Now   func() time.Time
	NewID func() string
}

func NewService(d Deps) *Service {
	if d.Index == nil {
		d.Index = search.Noop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return &Service{
		store:     d.Store,
		generator: d.Generator,
		index:     d.Index,
		surfacer:  d.Surfacer,
		persister: d.Persister,
		corrector: d.Corrector,
		updater:   d.Updater,
		processor: d.Processor,
		now:       d.Now,
		newID:     d.NewID,
	}
}

// ProcessTurn runs one complete turn. Replays of an already-committed client
// message id return the stored result; racing duplicates lose the insert and
// take the same replay path.
func (s *Service) ProcessTurn(ctx context.Context, in TurnInput) (TurnResult, error) {
	if err := validate(in); err != nil {
		return TurnResult{}, err
	}

	user, found, err := s.store.GetUser(ctx, in.UserID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load user: %w", err)
	}
	if !found {
		return TurnResult{}, fmt.Errorf("%w: unknown user %s", ErrLifecycle, in.UserID)
	}

	// Fast replay path for client retries after commit.
	if prior, ok, err := s.replayResult(ctx, in); err != nil {
		return TurnResult{}, err
	} else if ok {
		prior.UserState = user.State
		return prior, nil
	}

	norm := textnorm.Normalize(in.Text)
	matches := topic.ComputeMatches(norm.NormNoPunct)
	decision := routing.Route(routing.UserState(user.State), norm, textnorm.TokenCount(norm.NormText),
		matches, safety.AgeBand(user.AgeBand))

	// Pre-onboarding turns answer with a refusal and never become history.
	if user.State == string(routing.StateCreated) {
		return TurnResult{
			Content:   refusalContent,
			Pipeline:  routing.PipelineRefusal,
			UserState: user.State,
			TraceID:   s.newID(),
		}, nil
	}

	// A turn without an assigned persona is a lifecycle violation, not a
	// generation fallback.
	assignment, found, err := s.store.GetAssignment(ctx, in.UserID, in.FriendID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load persona: %w", err)
	}
	if !found {
		return TurnResult{}, fmt.Errorf("%w: no persona assigned for user %s friend %s",
			ErrLifecycle, in.UserID, in.FriendID)
	}

	traceID := s.newID()
	log := map[string]interface{}{
		"trace_id": traceID, "user_id": in.UserID, "pipeline": string(decision.Pipeline),
	}
	logger.DebugCF("chat", "turn routed", log)

	if memory.IsCorrection(norm.NormNoPunct) && user.State == string(routing.StateActive) {
		return s.processCorrectionTurn(ctx, in, norm, decision, traceID)
	}

	surfaced, err := s.surface(ctx, in, norm, decision)
	if err != nil {
		return TurnResult{}, err
	}

	draft, err := s.generate(ctx, in, assignment, decision, surfaced)
	if err != nil {
		// Abort before any write: a failed generation must never leave a
		// partial turn behind.
		return TurnResult{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	stage := s.currentStage(ctx, in)
	gated, err := s.processor.Process(ctx, postproc.Input{
		Draft:             draft,
		ConversationID:    in.ConversationID,
		SurfacedMemoryIDs: surfaced,
		UserMessageNorm:   norm.NormText,
		Stage:             stage,
		Pipeline:          decision.Pipeline,
		IsRetention:       in.IsRetention,
	})
	if err != nil {
		return TurnResult{}, fmt.Errorf("quality gates: %w", err)
	}

	activate := user.State == string(routing.StateOnboarding)
	result, err := s.commitTurn(ctx, in, decision, gated, traceID, activate)
	if err != nil {
		return result, err
	}
	result.UserState = user.State
	if activate && result.Persisted {
		result.UserState = string(routing.StateActive)
	}
	if result.Replayed {
		return result, nil
	}

	s.runSideEffects(ctx, in, norm, decision, result)
	return result, nil
}

func validate(in TurnInput) error {
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return fmt.Errorf("%w: user id required", ErrValidation)
	case strings.TrimSpace(in.FriendID) == "":
		return fmt.Errorf("%w: friend id required", ErrValidation)
	case strings.TrimSpace(in.ConversationID) == "":
		return fmt.Errorf("%w: conversation id required", ErrValidation)
	case strings.TrimSpace(in.ClientMessageID) == "":
		return fmt.Errorf("%w: client message id required", ErrValidation)
	case strings.TrimSpace(in.Text) == "":
		return fmt.Errorf("%w: empty message", ErrValidation)
	}
	return nil
}

// replayResult loads the committed outcome for an already-seen client id.
func (s *Service) replayResult(ctx context.Context, in TurnInput) (TurnResult, bool, error) {
	userMsg, found, err := s.store.GetMessageByClientID(ctx, in.ConversationID, in.ClientMessageID)
	if err != nil {
		return TurnResult{}, false, fmt.Errorf("replay lookup: %w", err)
	}
	if !found {
		return TurnResult{}, false, nil
	}

	assistantID := AssistantMessageID(userMsg.ID)
	assistantMsg, found, err := s.store.GetMessage(ctx, assistantID)
	if err != nil {
		return TurnResult{}, false, fmt.Errorf("replay assistant lookup: %w", err)
	}
	if !found {
		// The winning request committed the user row but its reply is not
		// visible yet; surface a retryable conflict instead of regenerating.
		return TurnResult{}, false, fmt.Errorf("%w: reply for %s not committed", ErrConflict, in.ClientMessageID)
	}

	return TurnResult{
		UserMessageID:      userMsg.ID,
		AssistantMessageID: assistantMsg.ID,
		Content:            assistantMsg.Content,
		Pipeline:           routing.Pipeline(assistantMsg.Pipeline),
		SurfacedMemoryIDs:  assistantMsg.SurfacedMemoryIDs,
		TraceID:            assistantMsg.TraceID,
		Replayed:           true,
		Persisted:          true,
	}, true, nil
}

// AssistantMessageID derives the deterministic reply id for a user message.
func AssistantMessageID(userMessageID string) string {
	return uuid.NewSHA1(assistantNamespace, []byte(userMessageID)).String()
}

func (s *Service) surface(ctx context.Context, in TurnInput, norm textnorm.Result, decision routing.Decision) ([]string, error) {
	if decision.MemoryRead == routing.MemoryReadNone {
		return []string{}, nil
	}
	ids, err := s.surfacer.SelectForSurfacing(ctx, in.UserID, in.FriendID, norm.NormText)
	if err != nil {
		return nil, fmt.Errorf("surface memories: %w", err)
	}

	// On-demand vector search tops the heuristic list up, best-effort.
	// Suppressed keys are excluded at the index, not post-filtered.
	if decision.Vector == routing.VectorOnDemand && len(ids) < memory.MaxSurfaced {
		suppressed, serr := s.store.SuppressedKeys(ctx, in.UserID)
		if serr != nil {
			return nil, fmt.Errorf("load suppressed keys: %w", serr)
		}
		extra, serr := s.index.Search(ctx, norm.NormText, search.Filters{
			UserID: in.UserID, FriendID: in.FriendID, ExcludeKeys: suppressed,
		})
		if serr != nil {
			logger.WarnCF("chat", "vector search failed", map[string]interface{}{"error": serr.Error()})
		} else {
			for _, id := range extra {
				if len(ids) >= memory.MaxSurfaced {
					break
				}
				if !containsString(ids, id) {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids, nil
}

func (s *Service) generate(ctx context.Context, in TurnInput, assignment persona.Assignment, decision routing.Decision, surfaced []string) (string, error) {
	history, err := s.conversationHistory(ctx, in.ConversationID)
	if err != nil {
		return "", err
	}

	snippets := make([]string, 0, len(surfaced))
	for _, id := range surfaced {
		if snippet, ok := s.memorySnippet(ctx, id); ok {
			snippets = append(snippets, snippet)
		}
	}

	return s.generator.Generate(ctx, llm.Request{
		Pipeline:        string(decision.Pipeline),
		Style:           assignment.Style,
		History:         history,
		UserMessage:     in.Text,
		MemorySnippets:  snippets,
		CrisisFlow:      decision.RequiresCrisisFlow,
		RelationshipTag: string(s.currentStage(ctx, in)),
	})
}

func (s *Service) conversationHistory(ctx context.Context, conversationID string) ([]llm.Turn, error) {
	assistant, err := s.store.RecentAssistantMessages(ctx, conversationID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load assistant history: %w", err)
	}
	users, err := s.store.RecentUserMessages(ctx, conversationID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load user history: %w", err)
	}

	// Both lists are newest-first and turns commit pairwise, so index i of
	// each list belongs to the same turn. Emit oldest-first.
	turns := make([]llm.Turn, 0, len(assistant)+len(users))
	for i := len(users) - 1; i >= 0; i-- {
		turns = append(turns, llm.Turn{Role: "user", Content: users[i].Content})
		if i < len(assistant) {
			turns = append(turns, llm.Turn{Role: "assistant", Content: assistant[i].Content})
		}
	}
	return turns, nil
}

func (s *Service) memorySnippet(ctx context.Context, id string) (string, bool) {
	rec, found, err := s.store.GetRecord(ctx, id)
	if err != nil || !found {
		return "", false
	}
	return strings.ReplaceAll(strings.ReplaceAll(rec.Value, "|", " "), "_", " "), true
}

func (s *Service) currentStage(ctx context.Context, in TurnInput) relationship.Stage {
	state, found, err := s.store.GetRelationship(ctx, in.UserID, in.FriendID)
	if err != nil || !found {
		return relationship.StageStranger
	}
	return state.Stage
}

// commitTurn writes both messages atomically, flipping an onboarding user to
// active in the same transaction. A lost race falls back to the replay path.
func (s *Service) commitTurn(ctx context.Context, in TurnInput, decision routing.Decision, gated postproc.Result, traceID string, activateUser bool) (TurnResult, error) {
	now := s.now()
	userMsg := store.Message{
		ID:              s.newID(),
		ClientMessageID: in.ClientMessageID,
		ConversationID:  in.ConversationID,
		UserID:          in.UserID,
		FriendID:        in.FriendID,
		Role:            store.RoleUser,
		Content:         in.Text,
		Pipeline:        string(decision.Pipeline),
		TraceID:         traceID,
		Status:          store.StatusCompleted,
		CreatedAt:       now,
	}
	assistantMsg := store.Message{
		ID:                AssistantMessageID(userMsg.ID),
		ConversationID:    in.ConversationID,
		UserID:            in.UserID,
		FriendID:          in.FriendID,
		Role:              store.RoleAssistant,
		Content:           gated.Content,
		OpenerNorm:        gated.OpenerNorm,
		SurfacedMemoryIDs: gated.SurfacedMemoryIDs,
		Pipeline:          string(decision.Pipeline),
		TraceID:           traceID,
		Status:            store.StatusCompleted,
		CreatedAt:         now,
	}

	err := s.store.InsertTurn(ctx, userMsg, assistantMsg, activateUser)
	if errors.Is(err, store.ErrDuplicateMessage) {
		replayed, ok, rerr := s.replayResult(ctx, in)
		if rerr != nil {
			return TurnResult{}, rerr
		}
		if !ok {
			return TurnResult{}, fmt.Errorf("%w: lost insert race for %s", ErrConflict, in.ClientMessageID)
		}
		return replayed, nil
	}
	if err != nil {
		return TurnResult{}, fmt.Errorf("commit turn: %w", err)
	}

	return TurnResult{
		UserMessageID:      userMsg.ID,
		AssistantMessageID: assistantMsg.ID,
		Content:            assistantMsg.Content,
		Pipeline:           decision.Pipeline,
		SurfacedMemoryIDs:  assistantMsg.SurfacedMemoryIDs,
		RequiresCrisisFlow: decision.RequiresCrisisFlow,
		TraceID:            traceID,
		Persisted:          true,
	}, nil
}

// runSideEffects fires the post-commit work. Failures log and never roll
// back the committed turn.
func (s *Service) runSideEffects(ctx context.Context, in TurnInput, norm textnorm.Result, decision routing.Decision, result TurnResult) {
	warn := func(what string, err error) {
		logger.WarnCF("chat", what, map[string]interface{}{
			"trace_id": result.TraceID, "user_id": in.UserID, "error": err.Error(),
		})
	}

	if decision.MemoryWrite == routing.MemoryWriteSelective {
		eventMonth := s.now().UTC().Format("2006-01")
		candidates := memory.Extract(norm.NormText, eventMonth)
		if len(candidates) > 0 {
			if _, err := s.persister.PersistAll(ctx, in.UserID, in.FriendID, result.UserMessageID, candidates); err != nil {
				warn("memory extraction failed", err)
			}
		}
	}

	if decision.RelationshipUpdate {
		wasAiQuestion, err := s.previousReplyWasQuestion(ctx, in.ConversationID)
		if err != nil {
			warn("load previous reply failed", err)
		}
		if _, err := s.updater.UpdateAfterMessage(ctx, in.UserID, in.FriendID, norm.NormText, wasAiQuestion); err != nil {
			warn("relationship update failed", err)
		}
	}
}

// previousReplyWasQuestion checks whether the reply the user was answering
// ended with a question. Runs post-commit, so index 0 is this turn's own
// reply and index 1 is the one the user saw.
func (s *Service) previousReplyWasQuestion(ctx context.Context, conversationID string) (bool, error) {
	msgs, err := s.store.RecentAssistantMessages(ctx, conversationID, 2)
	if err != nil {
		return false, err
	}
	if len(msgs) < 2 {
		return false, nil
	}
	return strings.HasSuffix(strings.TrimSpace(msgs[1].Content), "?"), nil
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
