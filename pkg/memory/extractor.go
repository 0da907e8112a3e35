package memory

import (
	"sort"
	"strings"
)

const extractConfidence = 0.60

const maxHarvestTokens = 4

// trigger is one phrase-table entry: matching the phrase harvests the tokens
// that follow it into a candidate.
type trigger struct {
	phrase string
	typ    Type
	// keyNS namespaces the canonical key, e.g. pref, fact, goal.
	keyNS string
	// stance prefixes the value for preference candidates (like / dislike).
	stance string
	// koSuffix, when set, requires the verb to appear after the harvested
	// tokens (Korean puts the stance verb at the end of the clause).
	koSuffix string
	// harvestBefore harvests the tokens preceding the phrase instead.
	harvestBefore bool
	// harvestPhrase fixes the harvested value, for phrases that carry the
	// content themselves.
	harvestPhrase string
}

// Phrase tables are bilingual and fixed. Order matters only for harvesting
// position; dedup below makes the final candidate set order-insensitive.
var triggers = []trigger{
	// preferences
	{phrase: "i love ", typ: TypePreference, keyNS: "pref", stance: "like"},
	{phrase: "i like ", typ: TypePreference, keyNS: "pref", stance: "like"},
	{phrase: "i really like ", typ: TypePreference, keyNS: "pref", stance: "like"},
	{phrase: "my favorite is ", typ: TypePreference, keyNS: "pref", stance: "like"},
	{phrase: "i hate ", typ: TypePreference, keyNS: "pref", stance: "dislike"},
	{phrase: "i dislike ", typ: TypePreference, keyNS: "pref", stance: "dislike"},
	{phrase: "i can't stand ", typ: TypePreference, keyNS: "pref", stance: "dislike"},
	{phrase: "나는 ", typ: TypePreference, keyNS: "pref", stance: "like", koSuffix: "좋아"},
	{phrase: "나는 ", typ: TypePreference, keyNS: "pref", stance: "dislike", koSuffix: "싫어"},

	// facts
	{phrase: "my name is ", typ: TypeFact, keyNS: "fact:name"},
	{phrase: "i live in ", typ: TypeFact, keyNS: "fact:location"},
	{phrase: "i work as ", typ: TypeFact, keyNS: "fact:job"},
	{phrase: "i work at ", typ: TypeFact, keyNS: "fact:workplace"},
	{phrase: "my job is ", typ: TypeFact, keyNS: "fact:job"},
	{phrase: "i study ", typ: TypeFact, keyNS: "fact:study"},
	{phrase: "제 이름은 ", typ: TypeFact, keyNS: "fact:name"},
	{phrase: "저는 ", typ: TypeFact, keyNS: "fact:location", koSuffix: "살아"},

	// events (dated; key gets the event month appended by the extractor)
	{phrase: "yesterday i ", typ: TypeRelationshipEvent, keyNS: "event"},
	{phrase: "today i ", typ: TypeRelationshipEvent, keyNS: "event"},
	{phrase: "last week i ", typ: TypeRelationshipEvent, keyNS: "event"},
	{phrase: "next week i ", typ: TypeRelationshipEvent, keyNS: "event"},
	{phrase: "어제 ", typ: TypeRelationshipEvent, keyNS: "event"},
	{phrase: "오늘 ", typ: TypeRelationshipEvent, keyNS: "event"},

	// goals
	{phrase: "i want to ", typ: TypeFact, keyNS: "goal"},
	{phrase: "i'm trying to ", typ: TypeFact, keyNS: "goal"},
	{phrase: "my goal is to ", typ: TypeFact, keyNS: "goal"},
	{phrase: "i plan to ", typ: TypeFact, keyNS: "goal"},
	{phrase: "하고 싶어", typ: TypeFact, keyNS: "goal", harvestBefore: true},

	// hobbies
	{phrase: "my hobby is ", typ: TypeFact, keyNS: "hobby"},
	{phrase: "in my free time i ", typ: TypeFact, keyNS: "hobby"},
	{phrase: "i've been into ", typ: TypeFact, keyNS: "hobby"},
	{phrase: "취미는 ", typ: TypeFact, keyNS: "hobby"},

	// emotional patterns
	{phrase: "i always feel ", typ: TypeEmotionalPattern, keyNS: "emo"},
	{phrase: "i keep feeling ", typ: TypeEmotionalPattern, keyNS: "emo"},
	{phrase: "lately i feel ", typ: TypeEmotionalPattern, keyNS: "emo"},
	{phrase: "i get anxious ", typ: TypeEmotionalPattern, keyNS: "emo", harvestPhrase: "anxious"},
	{phrase: "요즘 계속 ", typ: TypeEmotionalPattern, keyNS: "emo"},
}

// stopWords terminate a harvest.
var stopWords = map[string]bool{
	"and": true, "but": true, "because": true, "so": true, "when": true,
	"that": true, "which": true, "then": true, "though": true, "if": true,
	"i": true, "my": true, "we": true, "it": true,
	"그리고": true, "그런데": true, "근데": true, "그래서": true,
}

// Extract scans the normalized text with the fixed phrase tables and returns
// deduplicated candidates. eventMonth (YYYY-MM) dates event keys and is
// passed in by the caller so the function stays referentially transparent.
func Extract(normText string, eventMonth string) []Candidate {
	var out []Candidate
	for _, tr := range triggers {
		value, ok := tr.harvest(normText)
		if !ok {
			continue
		}
		slug := Slugify(value)
		if slug == "" {
			continue
		}
		c := Candidate{Type: tr.typ, Confidence: extractConfidence}
		switch {
		case tr.typ == TypePreference:
			c.Key = tr.keyNS + ":" + slug
			c.Value = tr.stance + "|" + slug
		case tr.keyNS == "event":
			c.Key = "event:" + eventMonth + ":" + slug
			c.Value = slug
		case strings.Contains(tr.keyNS, ":"):
			// fixed-slot fact key, e.g. fact:name
			c.Key = tr.keyNS
			c.Value = slug
		default:
			c.Key = tr.keyNS + ":" + slug
			c.Value = slug
		}
		out = append(out, c)
	}
	return dedupeByKey(out)
}

// harvest locates the phrase and collects up to maxHarvestTokens following
// tokens, stopping at stop-words or punctuation.
func (tr trigger) harvest(normText string) (string, bool) {
	idx := strings.Index(normText, tr.phrase)
	if idx < 0 {
		return "", false
	}
	if tr.harvestPhrase != "" {
		return tr.harvestPhrase, true
	}
	var segment string
	if tr.harvestBefore {
		segment = normText[:idx]
		toks := tokensOf(segment)
		if len(toks) == 0 {
			return "", false
		}
		start := len(toks) - maxHarvestTokens
		if start < 0 {
			start = 0
		}
		toks = toks[start:]
		return strings.Join(toks, " "), true
	}
	segment = normText[idx+len(tr.phrase):]
	toks := harvestTokens(segment)
	if len(toks) == 0 {
		return "", false
	}
	joined := strings.Join(toks, " ")
	if tr.koSuffix != "" {
		if !strings.Contains(segment, tr.koSuffix) {
			return "", false
		}
		// drop the stance verb itself from the harvested value
		joined = strings.TrimSpace(strings.Split(joined, tr.koSuffix)[0])
		if joined == "" {
			return "", false
		}
	}
	return joined, true
}

func harvestTokens(segment string) []string {
	var toks []string
	for _, tok := range strings.Fields(segment) {
		trimmed, hadPunct := trimTokenPunct(tok)
		if trimmed == "" || stopWords[trimmed] {
			break
		}
		toks = append(toks, trimmed)
		if hadPunct || len(toks) == maxHarvestTokens {
			break
		}
	}
	return toks
}

func tokensOf(segment string) []string {
	var toks []string
	for _, tok := range strings.Fields(segment) {
		trimmed, _ := trimTokenPunct(tok)
		if trimmed == "" || stopWords[trimmed] {
			toks = toks[:0]
			continue
		}
		toks = append(toks, trimmed)
	}
	if len(toks) == 0 {
		return nil
	}
	return toks
}

// trimTokenPunct strips trailing sentence punctuation and reports whether any
// was present, which ends the harvest at a clause boundary.
func trimTokenPunct(tok string) (string, bool) {
	trimmed := strings.TrimRight(tok, ".,!?;:")
	return trimmed, trimmed != tok
}

// dedupeByKey keeps the highest-confidence candidate per key, with stable
// output order by key so repeated calls are byte-identical.
func dedupeByKey(cands []Candidate) []Candidate {
	if len(cands) == 0 {
		return nil
	}
	best := map[string]Candidate{}
	for _, c := range cands {
		prev, ok := best[c.Key]
		if !ok || c.Confidence > prev.Confidence {
			best[c.Key] = c
		}
	}
	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Candidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, best[k])
	}
	return out
}
