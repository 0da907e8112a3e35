package postproc

import (
	"strings"

	"github.com/taepop/chingoo-sub000/pkg/relationship"
)

// intimatePhrases are forbidden at STRANGER and ACQUAINTANCE stages.
var intimatePhrases = []string{
	"i love you", "you mean everything to me", "you're my best friend",
	"i've missed you so much", "i think about you all the time",
	"사랑해", "너 없으면 안 돼", "너가 제일 소중해",
}

// dependencyPhrases are forbidden at every stage, CLOSE_FRIEND included.
var dependencyPhrases = []string{
	"you only need me", "i'm the only one who understands you",
	"you don't need anyone else", "don't talk to other people about this",
	"나만 믿어", "다른 사람은 필요 없어",
}

func hasIntimacyViolation(content string, stage relationship.Stage) bool {
	lower := strings.ToLower(content)
	for _, p := range dependencyPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	if stage == relationship.StageStranger || stage == relationship.StageAcquaintance {
		for _, p := range intimatePhrases {
			if strings.Contains(lower, p) {
				return true
			}
		}
	}
	return false
}

// intimacySubstitutions tones a phrase down instead of deleting the clause.
var intimacySubstitutions = map[string]string{
	"i love you":                     "i'm glad we talked",
	"you mean everything to me":      "talking with you is nice",
	"you're my best friend":          "i like chatting with you",
	"i've missed you so much":        "good to hear from you",
	"i think about you all the time": "i was wondering how you've been",
	"사랑해":                            "얘기해서 좋았어",
	"너 없으면 안 돼":                      "얘기 나눠서 좋아",
	"너가 제일 소중해":                      "같이 얘기해서 좋아",

	"you only need me":                      "i'm here if you want to talk",
	"i'm the only one who understands you":  "i'm listening",
	"you don't need anyone else":            "i'm glad you shared that with me",
	"don't talk to other people about this": "take whatever support helps you",
	"나만 믿어":                                "언제든 얘기해",
	"다른 사람은 필요 없어":                         "얘기하고 싶을 때 말해줘",
}

func substituteIntimacy(content string) string {
	lower := strings.ToLower(content)
	for phrase, repl := range intimacySubstitutions {
		for {
			idx := strings.Index(lower, phrase)
			if idx < 0 {
				break
			}
			content = content[:idx] + repl + content[idx+len(phrase):]
			lower = strings.ToLower(content)
		}
	}
	return content
}
