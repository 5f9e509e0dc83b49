// common/random_generator.go
package common

import (
	"math/rand/v2"
)

// RandomGenerator substitutes characters with values drawn from a PRNG.
// Every call draws fresh randomness, so two calls for the same value usually
// differ; callers memoize at the value level.
//
// A RandomGenerator is not safe for concurrent use.
type RandomGenerator struct {
	rng *rand.Rand
}

// NewRandomGenerator returns a generator seeded from the runtime source.
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededRandomGenerator returns a generator whose output sequence is fully
// determined by seed.
func NewSeededRandomGenerator(seed uint64) *RandomGenerator {
	return &RandomGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *RandomGenerator) Mode() string { return ModeRandom }

func (g *RandomGenerator) GenerateToken(value string) string {
	return substitute(value, g.rng.IntN)
}
