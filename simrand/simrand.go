// Package simrand provides the single deterministic random source threaded
// through the simulation. Every roll the core needs — dice, float ranges,
// weighted picks — goes through one Source so that an identical seed plus
// an identical input trace replays byte-identical (see spec.md §5, §8).
package simrand

import "math/rand"

// Source wraps a seeded *rand.Rand. It is not safe for concurrent use;
// the simulation is single-threaded per tick (spec.md §5) so none is needed.
type Source struct {
	rng *rand.Rand
}

// New creates a Source from a fixed seed.
func New(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Intn returns a value in [0, n). Unlike math/rand, it returns 0 instead
// of panicking when n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n)
}

// DiceRoll returns a value in [1, num], inclusive on both ends.
func (s *Source) DiceRoll(num int) int {
	if num <= 0 {
		return 1
	}
	return s.rng.Intn(num) + 1
}

// Between returns a value in [low, high], inclusive. If high < low the
// arguments are swapped so callers never need to pre-sort a range.
func (s *Source) Between(low, high int) int {
	if high < low {
		low, high = high, low
	}
	return low + s.rng.Intn(high-low+1)
}

// Float01 returns a value in [0.0, 1.0).
func (s *Source) Float01() float64 {
	return s.rng.Float64()
}

// FloatBetween returns a value in [low, high).
func (s *Source) FloatBetween(low, high float64) float64 {
	if high < low {
		low, high = high, low
	}
	return low + s.rng.Float64()*(high-low)
}

// Percent rolls a uniform 0..100 value and reports whether it fell under
// the given chance (itself expressed 0..100). A chance <= 0 never succeeds;
// a chance >= 100 always does.
func (s *Source) Percent(chance float64) bool {
	if chance <= 0 {
		return false
	}
	if chance >= 100 {
		return true
	}
	return s.rng.Float64()*100 < chance
}

// Pick returns a uniformly random index in [0, n). Panics if n <= 0.
func (s *Source) Pick(n int) int {
	return s.rng.Intn(n)
}
