package engine

import (
	"math"
	"math/rand/v2"
)

// RandomSample draws every role uniformly and independently at each step.
//
// Draw n is a pure function of (Seed, n): a PCG generator is seeded with the
// sample seed and a mix of n. Any draw can be computed directly, so Skip is
// O(1) and a frozen cursor needs only the step to resume. The walk never
// exhausts and may repeat positions.
type RandomSample struct {
	Seed uint64
}

var _ Seeker = RandomSample{}

// Spec implements Strategy.
func (r RandomSample) Spec() Spec {
	return Spec{Kind: KindRandom, Seed: r.Seed}
}

// Initial returns draw 0.
func (r RandomSample) Initial(sizes Sizes) (Position, error) {
	return r.PositionAt(sizes, 0)
}

// Successor returns draw step+1. pos is not consulted: draws are independent.
func (r RandomSample) Successor(sizes Sizes, step uint64, _ Position) (Position, error) {
	if step == math.MaxUint64 {
		return nil, ErrExhausted
	}
	return r.PositionAt(sizes, step+1)
}

// PositionAt returns draw n.
func (r RandomSample) PositionAt(sizes Sizes, n uint64) (Position, error) {
	if err := sizes.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(r.Seed, mix64(n)))
	pos := make(Position, len(sizes))
	for role, size := range sizes {
		pos[role] = rng.IntN(size)
	}
	return pos, nil
}

// mix64 is the splitmix64 finalizer. Neighbouring steps seed unrelated
// generator streams.
func mix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
