package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidenceFormula(t *testing.T) {
	cases := []struct {
		hits      int
		conf      float64
		initiated bool
	}{
		{1, 0.50, false},
		{2, 0.65, false},
		{3, 0.80, true},
		{4, 0.95, true},
		{5, 1.00, true},
		{9, 1.00, true},
	}
	for _, tc := range cases {
		c := confidenceFor(tc.hits)
		assert.Equal(t, tc.conf, c, "hits=%d", tc.hits)
		assert.Equal(t, tc.initiated, c >= initiatedAtOrOver, "hits=%d", tc.hits)
	}
}

func TestComputeMatches_DistinctEntriesOnly(t *testing.T) {
	// "depressed" appears three times but is one distinct entry.
	matches := ComputeMatches("depressed depressed depressed")
	m, ok := Find(matches, MentalHealth)
	require.True(t, ok)
	assert.Equal(t, 1, m.HitCount)
	assert.Equal(t, 0.50, m.Confidence)
	assert.False(t, m.UserInitiated)
}

func TestComputeMatches_WholeWordASCII(t *testing.T) {
	// "sextant" must not hit the "sex" entry.
	matches := ComputeMatches("i bought a sextant for navigation")
	_, ok := Find(matches, SexualContent)
	assert.False(t, ok)

	matches = ComputeMatches("we talked about sex education")
	m, ok := Find(matches, SexualContent)
	require.True(t, ok)
	assert.GreaterOrEqual(t, m.HitCount, 1)
}

func TestComputeMatches_KoreanSubstring(t *testing.T) {
	matches := ComputeMatches("요즘 너무 우울해서 불안하고 스트레스 받아")
	m, ok := Find(matches, MentalHealth)
	require.True(t, ok)
	assert.Equal(t, 3, m.HitCount) // 우울, 불안, 스트레스
	assert.Equal(t, 0.80, m.Confidence)
	assert.True(t, m.UserInitiated)
}

func TestComputeMatches_EmptyInput(t *testing.T) {
	assert.Nil(t, ComputeMatches(""))
	assert.Nil(t, ComputeMatches("   "))
}

func TestComputeMatches_Deterministic(t *testing.T) {
	text := "my boss made me do overtime and now i'm stressed about my exam"
	first := ComputeMatches(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ComputeMatches(text))
	}
}

func TestComputeMatches_StableOrder(t *testing.T) {
	text := "i got drunk at the casino after the election"
	matches := ComputeMatches(text)
	require.Len(t, matches, 3)
	assert.Equal(t, Politics, matches[0].Topic)
	assert.Equal(t, Substances, matches[1].Topic)
	assert.Equal(t, Gambling, matches[2].Topic)
}
