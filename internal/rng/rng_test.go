package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicAcrossInstances(t *testing.T) {
	a := New(42)
	b := New(42)

	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := New(1)
	b := New(2)
	assert.NotEqual(t, a.Float64(), b.Float64())
}

func TestIntRangeBounds(t *testing.T) {
	g := New(7)
	for i := 0; i < 200; i++ {
		v := g.IntRange(3, 8)
		assert.GreaterOrEqual(t, v, 3)
		assert.LessOrEqual(t, v, 8)
	}
}

func TestIntRangeSwapsReversedBounds(t *testing.T) {
	g := New(7)
	v := g.IntRange(8, 3)
	assert.GreaterOrEqual(t, v, 3)
	assert.LessOrEqual(t, v, 8)
}

func TestShuffleIsPermutation(t *testing.T) {
	g := New(99)
	x := []int{1, 2, 3, 4, 5}
	orig := append([]int(nil), x...)
	Shuffle(g, x)
	assert.ElementsMatch(t, orig, x)
}

func TestSamplePanicsWhenKTooLarge(t *testing.T) {
	g := New(1)
	assert.Panics(t, func() {
		Sample(g, []int{1, 2}, 3)
	})
}

func TestSampleReturnsDistinctElements(t *testing.T) {
	g := New(1)
	out := Sample(g, []int{1, 2, 3, 4, 5}, 3)
	require.Len(t, out, 3)
	seen := map[int]bool{}
	for _, v := range out {
		assert.False(t, seen[v], "sample must not repeat elements")
		seen[v] = true
	}
}

func TestGetSetStateResumesStream(t *testing.T) {
	g := New(5)
	_ = g.Float64()
	_ = g.Float64()
	state := g.GetState()
	next := g.Float64()

	g2 := New(123) // different seed entirely
	g2.SetState(state)
	assert.Equal(t, next, g2.Float64())
}

func TestReseedResetsStream(t *testing.T) {
	g := New(5)
	first := New(9).Float64()
	g.Reseed(9)
	assert.Equal(t, first, g.Float64())
}

func TestChoiceStaysWithinSlice(t *testing.T) {
	g := New(3)
	seq := []string{"a", "b", "c"}
	for i := 0; i < 20; i++ {
		assert.Contains(t, seq, Choice(g, seq))
	}
}
