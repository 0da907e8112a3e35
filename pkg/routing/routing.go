// Package routing turns a normalized user message plus lifecycle state into
// the per-turn RoutingDecision: which pipeline handles the turn and which
// read/write policies apply. Identical inputs always produce byte-identical
// decisions; this property is load-bearing and covered by tests.
package routing

import (
	"strings"

	"github.com/taepop/chingoo-sub000/pkg/safety"
	"github.com/taepop/chingoo-sub000/pkg/textnorm"
	"github.com/taepop/chingoo-sub000/pkg/topic"
)

// UserState is the user lifecycle position.
type UserState string

const (
	StateCreated    UserState = "created"
	StateOnboarding UserState = "onboarding"
	StateActive     UserState = "active"
)

// Pipeline selects the turn-handling flow.
type Pipeline string

const (
	PipelineOnboardingChat   Pipeline = "onboarding_chat"
	PipelineFriendChat       Pipeline = "friend_chat"
	PipelineEmotionalSupport Pipeline = "emotional_support"
	PipelineInfoQA           Pipeline = "info_qa"
	PipelineRefusal          Pipeline = "refusal"
)

// MemoryReadPolicy controls how much stored memory is surfaced.
type MemoryReadPolicy string

const (
	MemoryReadNone  MemoryReadPolicy = "none"
	MemoryReadLight MemoryReadPolicy = "light"
	MemoryReadFull  MemoryReadPolicy = "full"
)

// MemoryWritePolicy controls whether extraction results persist.
type MemoryWritePolicy string

const (
	MemoryWriteNone      MemoryWritePolicy = "none"
	MemoryWriteSelective MemoryWritePolicy = "selective"
)

// VectorPolicy controls semantic-search usage.
type VectorPolicy string

const (
	VectorOff      VectorPolicy = "off"
	VectorOnDemand VectorPolicy = "on_demand"
)

// Flags are the deterministic heuristics computed from the message text.
type Flags struct {
	HasDistress        bool
	AsksForComfort     bool
	IsQuestion         bool
	HasPersonalPronoun bool
	IsPureFactQuestion bool
}

// Decision is the complete routing output for one turn. It is computed fresh
// every turn and never persisted.
type Decision struct {
	Pipeline           Pipeline
	SafetyPolicy       safety.Policy
	RequiresCrisisFlow bool
	MemoryRead         MemoryReadPolicy
	MemoryWrite        MemoryWritePolicy
	Vector             VectorPolicy
	RelationshipUpdate bool

	// Debug fields.
	EffectiveAgeBand safety.AgeBand
	Flags            Flags
	SafetyReason     string
}

var (
	distressKeywords = []string{
		"i can't take it", "overwhelmed", "exhausted", "falling apart",
		"so stressed", "breaking down", "hopeless", "miserable",
		"힘들어", "지쳤어", "무너질 것 같", "막막해", "괴로워",
	}
	comfortKeywords = []string{
		"comfort me", "cheer me up", "i need support", "make me feel better",
		"listen to me", "i just need to vent",
		"위로해", "달래줘", "들어줘", "토닥토닥",
	}
	questionWords = []string{
		"what", "why", "how", "when", "where", "who", "which", "is", "are",
		"do", "does", "did", "can", "could", "should",
		"뭐", "왜", "어떻게", "언제", "어디",
	}
	personalPronouns = []string{
		"i", "me", "my", "mine", "we", "our", "나", "난", "내", "저", "우리",
	}
)

// pipelinePolicies is the fixed per-pipeline policy table.
var pipelinePolicies = map[Pipeline]struct {
	read         MemoryReadPolicy
	write        MemoryWritePolicy
	vector       VectorPolicy
	relationship bool
}{
	PipelineOnboardingChat:   {MemoryReadLight, MemoryWriteSelective, VectorOff, true},
	PipelineFriendChat:       {MemoryReadFull, MemoryWriteSelective, VectorOnDemand, true},
	PipelineEmotionalSupport: {MemoryReadFull, MemoryWriteSelective, VectorOnDemand, true},
	PipelineInfoQA:           {MemoryReadNone, MemoryWriteNone, VectorOff, true},
	PipelineRefusal:          {MemoryReadNone, MemoryWriteNone, VectorOff, false},
}

// Route computes the routing decision for one turn. norm carries both text
// variants; tokenEstimate is the whitespace token count of the message.
func Route(state UserState, norm textnorm.Result, tokenEstimate int, matches []topic.Match, ageBand safety.AgeBand) Decision {
	// Pre-onboarding users get a refusal regardless of content; the message
	// never becomes visible history.
	if state == StateCreated {
		return applyPolicies(Decision{
			Pipeline:         PipelineRefusal,
			SafetyPolicy:     safety.PolicyAllow,
			EffectiveAgeBand: ageBand,
		})
	}

	if state == StateOnboarding {
		d := applyPolicies(Decision{
			Pipeline:         PipelineOnboardingChat,
			SafetyPolicy:     safety.PolicyAllow,
			EffectiveAgeBand: ageBand,
		})
		d.MemoryRead = MemoryReadLight
		d.Vector = VectorOff
		return d
	}

	verdict := safety.Classify(norm.NormNoPunct, ageBand, matches)
	flags := computeFlags(norm, tokenEstimate)

	d := Decision{
		SafetyPolicy:       verdict.Policy,
		RequiresCrisisFlow: verdict.RequiresCrisisFlow,
		EffectiveAgeBand:   ageBand,
		Flags:              flags,
		SafetyReason:       verdict.Reason,
	}

	switch {
	case verdict.Policy == safety.PolicyHardRefuse:
		d.Pipeline = PipelineRefusal
	case verdict.SuggestedPipeline != safety.SuggestNone:
		d.Pipeline = pipelineFromSuggestion(verdict.SuggestedPipeline)
	case flags.HasDistress || flags.AsksForComfort:
		d.Pipeline = PipelineEmotionalSupport
	case flags.IsPureFactQuestion && !flags.HasPersonalPronoun:
		// Personal questions stay conversational: the pronoun tie-break
		// sends them to friend chat, not factual lookup.
		d.Pipeline = PipelineInfoQA
	default:
		d.Pipeline = PipelineFriendChat
	}

	d = applyPolicies(d)
	if !verdict.MemoryWriteAllowed {
		d.MemoryWrite = MemoryWriteNone
	}
	if !verdict.RelationshipUpdateAllowed {
		d.RelationshipUpdate = false
	}
	return d
}

func applyPolicies(d Decision) Decision {
	p := pipelinePolicies[d.Pipeline]
	d.MemoryRead = p.read
	d.MemoryWrite = p.write
	d.Vector = p.vector
	d.RelationshipUpdate = p.relationship
	return d
}

func pipelineFromSuggestion(s safety.Suggestion) Pipeline {
	switch s {
	case safety.SuggestRefusal:
		return PipelineRefusal
	case safety.SuggestEmotionalSupport:
		return PipelineEmotionalSupport
	case safety.SuggestInfoQA:
		return PipelineInfoQA
	}
	return PipelineFriendChat
}

func computeFlags(norm textnorm.Result, tokenEstimate int) Flags {
	text := norm.NormNoPunct
	f := Flags{
		HasDistress:    containsAny(text, distressKeywords),
		AsksForComfort: containsAny(text, comfortKeywords),
	}
	f.IsQuestion = isQuestion(norm)
	f.HasPersonalPronoun = hasPersonalPronoun(text)
	f.IsPureFactQuestion = f.IsQuestion && !f.HasDistress && !f.AsksForComfort && tokenEstimate <= 60
	return f
}

// isQuestion checks the punctuated variant for '?', then falls back to
// leading question words and the "how do i" idiom.
func isQuestion(norm textnorm.Result) bool {
	if strings.Contains(norm.NormText, "?") {
		return true
	}
	fields := strings.Fields(norm.NormNoPunct)
	if len(fields) > 0 {
		for _, w := range questionWords {
			if fields[0] == w {
				return true
			}
			// Korean question words agglutinate (어떻게든, 뭐라고).
			if !isASCIIWord(w) && strings.HasPrefix(fields[0], w) {
				return true
			}
		}
	}
	return strings.Contains(norm.NormNoPunct, "how do i")
}

func hasPersonalPronoun(text string) bool {
	fields := strings.Fields(text)
	for _, field := range fields {
		for _, p := range personalPronouns {
			if field == p {
				return true
			}
			// Korean pronouns agglutinate with particles (내가, 우리는).
			if !isASCIIWord(p) && strings.HasPrefix(field, p) {
				return true
			}
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func isASCIIWord(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
