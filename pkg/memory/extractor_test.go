package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_PreferenceStance(t *testing.T) {
	cands := Extract("i love pizza and i hate mondays", "2026-08")

	byKey := map[string]Candidate{}
	for _, c := range cands {
		byKey[c.Key] = c
	}
	like, ok := byKey["pref:pizza"]
	require.True(t, ok, "expected pref:pizza, got %v", cands)
	assert.Equal(t, TypePreference, like.Type)
	assert.Equal(t, "like|pizza", like.Value)
	assert.Equal(t, 0.60, like.Confidence)

	dislike, ok := byKey["pref:mondays"]
	require.True(t, ok)
	assert.Equal(t, "dislike|mondays", dislike.Value)
}

func TestExtract_HarvestStopsAtStopWordsAndPunctuation(t *testing.T) {
	cands := Extract("i love spicy ramen because it warms me up", "2026-08")
	require.Len(t, cands, 1)
	assert.Equal(t, "pref:spicy_ramen", cands[0].Key)

	cands = Extract("i live in seoul, near the river", "2026-08")
	require.Len(t, cands, 1)
	assert.Equal(t, "fact:location", cands[0].Key)
	assert.Equal(t, "seoul", cands[0].Value)
}

func TestExtract_HarvestTokenBound(t *testing.T) {
	cands := Extract("i want to learn oil painting every single weekend morning", "2026-08")
	require.Len(t, cands, 1)
	// harvest caps at four tokens
	assert.Equal(t, "goal:learn_oil_painting_every", cands[0].Key)
}

func TestExtract_EventKeysCarryMonth(t *testing.T) {
	cands := Extract("yesterday i visited grandma", "2026-03")
	require.Len(t, cands, 1)
	assert.Equal(t, TypeRelationshipEvent, cands[0].Type)
	assert.Equal(t, "event:2026-03:visited_grandma", cands[0].Key)
}

func TestExtract_Korean(t *testing.T) {
	cands := Extract("나는 떡볶이 좋아", "2026-08")
	require.Len(t, cands, 1)
	assert.Equal(t, "pref:떡볶이", cands[0].Key)
	assert.Equal(t, "like|떡볶이", cands[0].Value)

	cands = Extract("제 이름은 지민이야", "2026-08")
	require.Len(t, cands, 1)
	assert.Equal(t, "fact:name", cands[0].Key)
}

func TestExtract_DedupKeepsOnePerKey(t *testing.T) {
	cands := Extract("i like pizza i really like pizza", "2026-08")
	count := 0
	for _, c := range cands {
		if c.Key == "pref:pizza" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExtract_Deterministic(t *testing.T) {
	text := "i love hiking and my name is dana. yesterday i adopted a cat"
	first := Extract(text, "2026-08")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Extract(text, "2026-08"))
	}
}

func TestExtract_NoTriggersNoCandidates(t *testing.T) {
	assert.Empty(t, Extract("the weather is fine today over there", "2026-08"))
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"  Spicy Ramen!  ":  "spicy_ramen",
		"oil painting":      "oil_painting",
		"떡볶이 먹기":            "떡볶이_먹기",
		"a  b":              "a_b",
		"...":               "",
		"ｐｉｚｚａ":             "pizza", // fullwidth folds via NFKC
		"rock'n'roll music": "rocknroll_music",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugifyTruncates(t *testing.T) {
	long := "this is a very long harvested phrase that should not produce an unbounded key ever"
	got := Slugify(long)
	if len([]rune(got)) > 48 {
		t.Fatalf("slug too long: %d runes", len([]rune(got)))
	}
}
