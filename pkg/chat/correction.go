package chat

import (
	"context"
	"fmt"

	"github.com/taepop/chingoo-sub000/pkg/postproc"
	"github.com/taepop/chingoo-sub000/pkg/routing"
	"github.com/taepop/chingoo-sub000/pkg/textnorm"
)

const refusalContent = "i can't help with that one, but i'm happy to talk about something else."

// Correction acks are fixed text; a correction turn never calls the
// generator, so the invalidation outcome is always consistent with the ack.
const (
	ackInvalidated        = "got it, i'll drop that. thanks for setting me straight."
	ackForgotten          = "okay, forgotten. i won't bring that up again."
	ackNeedsClarification = "hmm, i'm not sure which thing you mean. can you tell me what i got wrong?"
)

// processCorrectionTurn handles "that's wrong" / "forget that" commands:
// invalidate the targeted memory, commit the ack as a normal turn, and skip
// extraction entirely.
func (s *Service) processCorrectionTurn(ctx context.Context, in TurnInput, norm textnorm.Result, decision routing.Decision, traceID string) (TurnResult, error) {
	correction, err := s.corrector.HandleCorrection(ctx, in.UserID, in.ConversationID, norm.NormNoPunct)
	if err != nil {
		return TurnResult{}, fmt.Errorf("handle correction: %w", err)
	}

	content := ackInvalidated
	switch {
	case correction.NeedsClarification:
		content = ackNeedsClarification
	case len(correction.SuppressedKeys) > 0:
		content = ackForgotten
	}

	gated := postproc.Result{
		Content:           content,
		OpenerNorm:        postproc.OpenerNorm(content),
		SurfacedMemoryIDs: []string{},
	}
	// Corrections only run for active users, so the commit never activates.
	result, err := s.commitTurn(ctx, in, decision, gated, traceID, false)
	if err != nil {
		return result, err
	}
	result.UserState = string(routing.StateActive)
	if result.Replayed {
		return result, nil
	}

	// Relationship evidence still counts; extraction must not run on a
	// correction command.
	sideDecision := decision
	sideDecision.MemoryWrite = routing.MemoryWriteNone
	s.runSideEffects(ctx, in, norm, sideDecision, result)
	return result, nil
}
