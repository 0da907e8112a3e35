package postproc

import (
	"hash/fnv"
	"strings"

	"github.com/taepop/chingoo-sub000/pkg/relationship"
	"github.com/taepop/chingoo-sub000/pkg/routing"
)

// openerRotations prefix the reply to break an exact opener repeat. The pick
// is hashed from the content so the pass stays deterministic.
var openerRotations = []string{
	"oh by the way, ",
	"hmm, ",
	"you know, ",
	"okay so, ",
	"honestly, ",
}

// deterministicRewrite applies one fix per flagged violation, in gate order.
func deterministicRewrite(content string, violations []Violation, _ relationship.Stage) string {
	for _, v := range violations {
		switch v {
		case ViolationOpenerRepeat:
			content = rotateOpener(content)
		case ViolationSimilarity:
			content = firstSentence(content)
		case ViolationIntimacy:
			content = substituteIntimacy(content)
		}
	}
	return content
}

func rotateOpener(content string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(content))
	prefix := openerRotations[h.Sum32()%uint32(len(openerRotations))]
	return prefix + content
}

// firstSentence truncates at the first sentence boundary, which breaks the
// trigram overlap with longer prior replies.
func firstSentence(content string) string {
	for i, r := range content {
		if r == '.' || r == '!' || r == '?' {
			return strings.TrimSpace(content[:i+1])
		}
		if r == '\n' {
			return strings.TrimSpace(content[:i])
		}
	}
	return content
}

// pipelineFallbacks are the safe responses substituted when both rewrite
// passes fail.
var pipelineFallbacks = map[routing.Pipeline]string{
	routing.PipelineOnboardingChat:   "so, tell me a bit about yourself. what's been on your mind lately?",
	routing.PipelineFriendChat:       "tell me more about that, i'm curious.",
	routing.PipelineEmotionalSupport: "that sounds like a lot to carry. i'm here, take your time.",
	routing.PipelineInfoQA:           "let me think about that one. can you tell me a bit more about what you're looking for?",
	routing.PipelineRefusal:          "i can't help with that one, but i'm happy to talk about something else.",
}

func fallbackFor(p routing.Pipeline) string {
	if f, ok := pipelineFallbacks[p]; ok {
		return f
	}
	return pipelineFallbacks[routing.PipelineFriendChat]
}
