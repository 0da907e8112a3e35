// Package safety implements the ordered rule cascade that gates every turn
// before routing. The cascade is deterministic: first matching rule wins and
// no rule consults a model, the clock or the network.
package safety

import (
	"regexp"
	"strings"

	"github.com/taepop/chingoo-sub000/pkg/topic"
)

// Policy is the refusal posture for a turn.
type Policy string

const (
	PolicyAllow      Policy = "allow"
	PolicySoftRefuse Policy = "soft_refuse"
	PolicyHardRefuse Policy = "hard_refuse"
)

// Suggestion is the pipeline the classifier wants the router to use. Empty
// means no override.
type Suggestion string

const (
	SuggestNone             Suggestion = ""
	SuggestRefusal          Suggestion = "refusal"
	SuggestEmotionalSupport Suggestion = "emotional_support"
	SuggestInfoQA           Suggestion = "info_qa"
)

// AgeBand is the user's declared age bracket. Unknown is treated as 13-17
// for the sexual-content gate only, never for general topic blocking.
type AgeBand string

const (
	AgeUnknown AgeBand = "unknown"
	AgeTeen    AgeBand = "13-17"
	AgeAdult   AgeBand = "18+"
)

// Verdict is the classifier output consumed by the router.
type Verdict struct {
	Policy                    Policy
	Reason                    string
	RequiresCrisisFlow        bool
	SuggestedPipeline         Suggestion
	MemoryWriteAllowed        bool
	RelationshipUpdateAllowed bool
}

var (
	explicitKeywords = []string{
		"porn", "nude pics", "send nudes", "erotic story", "hardcore",
		"explicit sex", "야동", "음란물",
	}
	roleplayPattern = regexp.MustCompile(
		`(pretend|roleplay|role play|act like|imagine)[^.!?]{0,40}\b(sexy|sexual|lover|girlfriend|boyfriend|nude|naked)\b`)
	selfHarmKeywords = []string{
		"kill myself", "suicide", "suicidal", "end my life", "want to die",
		"hurt myself", "self harm", "자살", "죽고 싶", "자해",
	}
	hateKeywords = []string{
		"hate speech", "racial slur", "gas the", "subhuman", "go back to your country",
		"혐오 발언", "열등한 인종",
	}
	harassmentPattern = regexp.MustCompile(
		`\b(you are|you're|she is|he is|they are)\s+(so\s+)?(stupid|worthless|pathetic|ugly|disgusting)\b`)
	clinicalPattern = regexp.MustCompile(
		`\b(anatomy|biology|puberty|reproduction|contraception|std|sti|sexual health|sex education|성교육)\b`)
	illegalKeywords = []string{
		"how to steal", "buy drugs", "fake id", "counterfeit money",
		"hack into", "launder money", "마약 구하", "불법 다운로드",
	}
)

// Classify runs the cascade over the punctuation-stripped normalized text.
// Rules are evaluated strictly in order; the first hit produces the verdict.
func Classify(normNoPunct string, ageBand AgeBand, matches []topic.Match) Verdict {
	text := strings.TrimSpace(normNoPunct)

	// 1. Explicit/erotic content or sexual roleplay request.
	if containsAny(text, explicitKeywords) || roleplayPattern.MatchString(text) {
		return Verdict{
			Policy:            PolicyHardRefuse,
			Reason:            "explicit_sexual_content",
			SuggestedPipeline: SuggestRefusal,
		}
	}

	// 2. Self-harm signals route to crisis support, not refusal. Writes stay
	// allowed so emotional patterns persist, never raw crisis detail.
	if containsAny(text, selfHarmKeywords) || confidenceAtLeast(matches, topic.SelfHarm, 0.5) {
		return Verdict{
			Policy:                    PolicyAllow,
			Reason:                    "self_harm_risk",
			RequiresCrisisFlow:        true,
			SuggestedPipeline:         SuggestEmotionalSupport,
			MemoryWriteAllowed:        true,
			RelationshipUpdateAllowed: true,
		}
	}

	// 3. Hate speech.
	if containsAny(text, hateKeywords) {
		return Verdict{
			Policy:            PolicyHardRefuse,
			Reason:            "hate_speech",
			SuggestedPipeline: SuggestRefusal,
		}
	}

	// 4. Borderline harassment softens the reply without overriding routing.
	if harassmentPattern.MatchString(text) {
		return Verdict{
			Policy:                    PolicySoftRefuse,
			Reason:                    "borderline_harassment",
			MemoryWriteAllowed:        true,
			RelationshipUpdateAllowed: true,
		}
	}

	// 5. Sexual-content topic gate, age-dependent.
	if confidenceAtLeast(matches, topic.SexualContent, 0.5) {
		educational := clinicalPattern.MatchString(text)
		if ageBand == AgeAdult {
			if educational {
				return Verdict{
					Policy:                    PolicyAllow,
					Reason:                    "sexual_education_adult",
					SuggestedPipeline:         SuggestInfoQA,
					RelationshipUpdateAllowed: true,
				}
			}
			return Verdict{
				Policy:                    PolicySoftRefuse,
				Reason:                    "sexual_content_adult",
				MemoryWriteAllowed:        false,
				RelationshipUpdateAllowed: true,
			}
		}
		// Unknown age defaults to the minor gate here only.
		if educational {
			return Verdict{
				Policy:                    PolicyAllow,
				Reason:                    "sexual_education_minor",
				SuggestedPipeline:         SuggestInfoQA,
				RelationshipUpdateAllowed: true,
			}
		}
		return Verdict{
			Policy:            PolicyHardRefuse,
			Reason:            "sexual_content_minor",
			SuggestedPipeline: SuggestRefusal,
		}
	}

	// 6. Illegal activity.
	if containsAny(text, illegalKeywords) || confidenceAtLeast(matches, topic.IllegalActivity, 0.7) {
		return Verdict{
			Policy:            PolicyHardRefuse,
			Reason:            "illegal_activity",
			SuggestedPipeline: SuggestRefusal,
		}
	}

	// 7. Default allow.
	return Verdict{
		Policy:                    PolicyAllow,
		MemoryWriteAllowed:        true,
		RelationshipUpdateAllowed: true,
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func confidenceAtLeast(matches []topic.Match, id topic.ID, threshold float64) bool {
	m, ok := topic.Find(matches, id)
	return ok && m.Confidence >= threshold
}
