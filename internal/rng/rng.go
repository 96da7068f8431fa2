// Package rng provides a per-match deterministic pseudo-random source.
//
// Grounded on the original engine's DeterministicRNG (rng.py), which
// wraps Python's random.Random(seed) and exposes random/randint/choice/
// shuffle/sample/getstate/setstate/reseed. Go's math/rand with a fixed
// seed is itself deterministic across runs of the same Go version, so
// this package wraps rand.Source64 the same way the original wraps
// random.Random, keeping the same method surface so replay only needs
// the original seed (or a saved draw count) to reproduce a match
// bit-for-bit. Every exported method routes through draw(), a single
// primitive, so GetState/SetState only has to track a draw count
// instead of reverse-engineering math/rand's internal generator state.
package rng

import "math/rand"

// RNG is a deterministic random source seeded once per match.
// Not safe for concurrent use - the match actor is single-writer.
type RNG struct {
	seed  int64
	src   rand.Source64
	count int64
}

// New creates an RNG seeded for a match.
func New(seed int64) *RNG {
	return &RNG{seed: seed, src: rand.NewSource(seed).(rand.Source64)}
}

// Seed returns the seed this RNG was most recently (re)seeded with.
func (g *RNG) Seed() int64 {
	return g.seed
}

// draw returns the next raw uniform uint64 and advances the stream position.
func (g *RNG) draw() uint64 {
	g.count++
	return g.src.Uint64()
}

// Float64 returns a random float in [0.0, 1.0).
func (g *RNG) Float64() float64 {
	// 53 significant bits, matching the precision of math/rand.Float64.
	return float64(g.draw()>>11) / (1 << 53)
}

// IntRange returns a random integer in [a, b], inclusive of both ends.
func (g *RNG) IntRange(a, b int) int {
	if b < a {
		a, b = b, a
	}
	span := uint64(b-a) + 1
	return a + int(g.draw()%span)
}

// Choice returns a random element from a non-empty slice.
func Choice[T any](g *RNG, seq []T) T {
	return seq[g.IntRange(0, len(seq)-1)]
}

// Shuffle permutes a slice in place using the Fisher-Yates algorithm.
func Shuffle[T any](g *RNG, x []T) {
	for i := len(x) - 1; i > 0; i-- {
		j := g.IntRange(0, i)
		x[i], x[j] = x[j], x[i]
	}
}

// Sample returns k distinct elements drawn without replacement from
// population, order randomized. Panics if k exceeds len(population),
// matching Python's random.sample.
func Sample[T any](g *RNG, population []T, k int) []T {
	if k > len(population) {
		panic("rng: sample size larger than population")
	}
	pool := make([]T, len(population))
	copy(pool, population)
	Shuffle(g, pool)
	return pool[:k]
}

// State is a serializable snapshot of the RNG's position, sufficient to
// resume generation exactly where it left off.
type State struct {
	Seed  int64 `json:"seed"`
	Count int64 `json:"count"`
}

// GetState captures the current position.
func (g *RNG) GetState() State {
	return State{Seed: g.seed, Count: g.count}
}

// SetState restores a previously captured position by replaying draws
// from a freshly seeded source - deterministic because the underlying
// generator is pure.
func (g *RNG) SetState(s State) {
	g.seed = s.Seed
	g.src = rand.NewSource(s.Seed).(rand.Source64)
	g.count = 0
	for g.count < s.Count {
		g.draw()
	}
}

// Reseed replaces the RNG's seed and resets its position to the start
// of the new stream.
func (g *RNG) Reseed(seed int64) {
	g.seed = seed
	g.src = rand.NewSource(seed).(rand.Source64)
	g.count = 0
}
