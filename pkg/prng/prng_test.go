package prng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_ReproducibleForSeed(t *testing.T) {
	a := New(12345)
	b := New(12345)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Next(), b.Next(), "draw %d", i)
	}
}

func TestNext_Range(t *testing.T) {
	r := New(987654321)
	for i := 0; i < 1000; i++ {
		v := r.Next()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestNext_DifferentSeedsDiverge(t *testing.T) {
	a := New(1)
	b := New(2)
	same := 0
	for i := 0; i < 20; i++ {
		if a.Next() == b.Next() {
			same++
		}
	}
	assert.Less(t, same, 3)
}

func TestNextInt_Bounds(t *testing.T) {
	r := New(42)
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		v := r.NextInt(7)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 7)
		seen[v] = true
	}
	assert.Len(t, seen, 7, "all buckets should be hit over 500 draws")
}

func TestPickExcluding_NeverReturnsExcluded(t *testing.T) {
	r := New(7)
	items := []string{"a", "b", "c"}
	for i := 0; i < 200; i++ {
		assert.NotEqual(t, "b", PickExcluding(r, items, "b"))
	}
}

func TestPickExcluding_NoAlternative(t *testing.T) {
	r := New(7)
	assert.Equal(t, "only", PickExcluding(r, []string{"only", "only"}, "only"))
}

func TestShuffle_ReproducibleAndPermutes(t *testing.T) {
	mk := func() []int { return []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9} }

	a := mk()
	Shuffle(New(555), a)
	b := mk()
	Shuffle(New(555), b)
	assert.Equal(t, a, b)

	assert.ElementsMatch(t, mk(), a)
	assert.NotEqual(t, mk(), a, "seed 555 should not yield the identity permutation")
}

func TestSample_SizeAndMembership(t *testing.T) {
	r := New(99)
	items := []int{1, 2, 3, 4, 5}
	got := Sample(r, items, 3)
	require.Len(t, got, 3)
	for _, v := range got {
		assert.Contains(t, items, v)
	}

	all := Sample(r, items, 10)
	assert.ElementsMatch(t, items, all)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items, "sample must not mutate its input")
}

func TestNextSeed_Deterministic(t *testing.T) {
	assert.Equal(t, New(31337).NextSeed(), New(31337).NextSeed())
}
