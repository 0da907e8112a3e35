// Package postproc runs the post-generation quality gates: personal-fact
// cap, opener repetition, similarity against recent replies, and intimacy
// caps by relationship stage. Failing drafts get one deterministic rewrite,
// then at most one generative rewrite, then a fixed fallback.
package postproc

import (
	"context"
	"strings"
	"unicode"

	"github.com/taepop/chingoo-sub000/pkg/logger"
	"github.com/taepop/chingoo-sub000/pkg/relationship"
	"github.com/taepop/chingoo-sub000/pkg/routing"
)

const (
	historyWindow = 20

	openerTokens = 12

	similarityThreshold = 0.70

	// surfaced-id limits per message kind
	maxSurfacedNormal    = 2
	maxSurfacedRetention = 1
)

// Violation names one failed gate.
type Violation string

const (
	ViolationOpenerRepeat Violation = "opener_repeat"
	ViolationSimilarity   Violation = "similarity"
	ViolationIntimacy     Violation = "intimacy"
)

// PriorMessage is one completed assistant message from the recent window.
type PriorMessage struct {
	Content    string
	OpenerNorm string
}

// History loads the recent completed assistant messages of a conversation.
type History interface {
	RecentAssistantMessages(ctx context.Context, conversationID string, limit int) ([]PriorMessage, error)
}

// Rewriter is the optional generative rewrite collaborator.
type Rewriter interface {
	Rewrite(ctx context.Context, draft string, violations []Violation) (string, error)
}

// Input is one draft to gate.
type Input struct {
	Draft             string
	ConversationID    string
	SurfacedMemoryIDs []string
	UserMessageNorm   string
	Stage             relationship.Stage
	Pipeline          routing.Pipeline
	IsRetention       bool
}

// Result is the gated output. OpenerNorm is always recomputed from the final
// content, never from the original draft.
type Result struct {
	Content           string
	OpenerNorm        string
	Violations        []Violation
	RewriteAttempts   int
	SurfacedMemoryIDs []string
}

// Processor wires the gates to their collaborators.
type Processor struct {
	history  History
	rewriter Rewriter // nil disables the generative pass
}

func NewProcessor(history History, rewriter Rewriter) *Processor {
	return &Processor{history: history, rewriter: rewriter}
}

// Process runs the gates in fixed order and returns whatever content
// survives them.
func (p *Processor) Process(ctx context.Context, in Input) (Result, error) {
	recent, err := p.history.RecentAssistantMessages(ctx, in.ConversationID, historyWindow)
	if err != nil {
		return Result{}, err
	}

	surfaced := capSurfaced(in.SurfacedMemoryIDs, in.UserMessageNorm, in.IsRetention)

	content := in.Draft
	violations := check(content, recent, in.Stage)
	attempts := 0

	if len(violations) > 0 {
		content = deterministicRewrite(content, violations, in.Stage)
		attempts++
		violations = check(content, recent, in.Stage)
	}

	if len(violations) > 0 && p.rewriter != nil {
		rewritten, rerr := p.rewriter.Rewrite(ctx, content, violations)
		if rerr != nil {
			logger.WarnCF("postproc", "generative rewrite failed", map[string]interface{}{
				"conversation_id": in.ConversationID, "error": rerr.Error(),
			})
		} else {
			content = rewritten
			attempts++
			violations = check(content, recent, in.Stage)
		}
	}

	if len(violations) > 0 {
		content = fallbackFor(in.Pipeline)
		violations = nil
	}

	return Result{
		Content:           content,
		OpenerNorm:        OpenerNorm(content),
		Violations:        violations,
		RewriteAttempts:   attempts,
		SurfacedMemoryIDs: surfaced,
	}, nil
}

var recallPhrases = []string{
	"remember", "you said", "last time", "기억", "저번에", "지난번에",
}

// capSurfaced truncates the surfaced-id list to the per-kind limit unless
// the user explicitly asked for recall. This mutates what gets recorded,
// independent of any text rewriting.
func capSurfaced(ids []string, userMessageNorm string, isRetention bool) []string {
	if ids == nil {
		ids = []string{}
	}
	limit := maxSurfacedNormal
	if isRetention {
		limit = maxSurfacedRetention
	}
	if len(ids) <= limit {
		return ids
	}
	for _, p := range recallPhrases {
		if strings.Contains(userMessageNorm, p) {
			return ids
		}
	}
	return ids[:limit]
}

func check(content string, recent []PriorMessage, stage relationship.Stage) []Violation {
	var out []Violation

	opener := OpenerNorm(content)
	for _, m := range recent {
		if opener != "" && opener == m.OpenerNorm {
			out = append(out, ViolationOpenerRepeat)
			break
		}
	}

	draftTokens := normTokens(content)
	for _, m := range recent {
		if TrigramJaccard(draftTokens, normTokens(m.Content)) >= similarityThreshold {
			out = append(out, ViolationSimilarity)
			break
		}
	}

	if hasIntimacyViolation(content, stage) {
		out = append(out, ViolationIntimacy)
	}
	return out
}

// OpenerNorm normalizes the reply opener for repetition checks: leading
// emoji stripped, ASCII lowercased, whitespace collapsed, punctuation
// stripped (apostrophes kept), first 12 tokens.
func OpenerNorm(content string) string {
	trimmed := strings.TrimLeftFunc(content, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsSymbol(r) || unicode.In(r, unicode.So)
	})
	tokens := normTokens(trimmed)
	if len(tokens) > openerTokens {
		tokens = tokens[:openerTokens]
	}
	return strings.Join(tokens, " ")
}

func normTokens(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r == '\'':
			b.WriteRune(r)
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}

// TrigramJaccard computes 3-gram-over-tokens Jaccard similarity. Sequences
// under three tokens have an empty gram set and similarity 0.
func TrigramJaccard(a, b []string) float64 {
	ga := trigrams(a)
	gb := trigrams(b)
	if len(ga) == 0 || len(gb) == 0 {
		return 0
	}
	inter := 0
	for g := range ga {
		if gb[g] {
			inter++
		}
	}
	union := len(ga) + len(gb) - inter
	return float64(inter) / float64(union)
}

func trigrams(tokens []string) map[string]bool {
	if len(tokens) < 3 {
		return nil
	}
	out := make(map[string]bool, len(tokens)-2)
	for i := 0; i+3 <= len(tokens); i++ {
		out[strings.Join(tokens[i:i+3], " ")] = true
	}
	return out
}
