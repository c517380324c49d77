// Package rng provides the seeded pseudo-random generator used by the
// simulation. Every random draw in a game session flows through one
// instance so a session is fully reproducible from its seed.
package rng

import "math/rand"

// RNG is a deterministic random source. It is not safe for concurrent
// use; the simulation is single-writer by design and callers hold the
// session lock.
type RNG struct {
	seed int64
	src  *rand.Rand
}

// New creates a generator seeded with the given value.
func New(seed int64) *RNG {
	return &RNG{seed: seed, src: rand.New(rand.NewSource(seed))}
}

// Seed returns the seed the generator was created (or last reseeded)
// with.
func (r *RNG) Seed() int64 { return r.seed }

// Reseed resets the generator to the start of the sequence for the
// given seed.
func (r *RNG) Reseed(seed int64) {
	r.seed = seed
	r.src = rand.New(rand.NewSource(seed))
}

// Float64 returns a uniform sample in [0, 1).
func (r *RNG) Float64() float64 { return r.src.Float64() }

// Range returns a uniform sample in [lo, hi).
func (r *RNG) Range(lo, hi float64) float64 {
	return lo + r.src.Float64()*(hi-lo)
}

// IntN returns a uniform integer in [0, n). Panics if n <= 0.
func (r *RNG) IntN(n int) int { return r.src.Intn(n) }

// Bool returns true with probability 0.5.
func (r *RNG) Bool() bool { return r.src.Intn(2) == 1 }

// Norm returns a Gaussian sample with the given mean and standard
// deviation.
func (r *RNG) Norm(mean, stddev float64) float64 {
	return mean + r.src.NormFloat64()*stddev
}

// Pick returns a uniformly chosen index into a collection of size n.
// Panics if n <= 0.
func (r *RNG) Pick(n int) int { return r.src.Intn(n) }

// WeightedPick returns an index chosen proportionally to the given
// non-negative weights. If all weights are zero it falls back to a
// uniform pick. Panics if weights is empty.
func (r *RNG) WeightedPick(weights []float64) int {
	if len(weights) == 0 {
		panic("rng: WeightedPick on empty weights")
	}
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return r.src.Intn(len(weights))
	}
	target := r.src.Float64() * total
	var acc float64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		if target < acc {
			return i
		}
	}
	return len(weights) - 1
}
