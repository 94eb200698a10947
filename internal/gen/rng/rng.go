// Package rng derives reproducible random sources from (seed, coordinate, salt).
//
// An RNG is a plain value. Copying it forks the sequence; nothing is shared
// between coordinates, so two workers evaluating the same coordinate always
// draw the same numbers.
package rng

import "terragen.ai/internal/gen/mathx"

// Salts for the independent purposes a world seed is split into.
const (
	SaltRegion      uint64 = 0x7265676e
	SaltLandBiome   uint64 = 0x6c616e64
	SaltSeaBiome    uint64 = 0x73656121
	SaltShoreBiome  uint64 = 0x73686f72
	SaltCaveBiome   uint64 = 0x63617665
	SaltContinental uint64 = 0x636f6e74
	SaltChildren    uint64 = 123
	SaltRock        uint64 = 2858678
	SaltFluid       uint64 = 238948
	SaltHeight      uint64 = 239945
	SaltJigsaw      uint64 = 0x6a696773
	SaltStronghold  uint64 = 0x7374726f
	SaltDecorator   uint64 = 39456
)

type RNG struct {
	state uint64
}

func New(seed int64) RNG {
	return RNG{state: mathx.Mix64(uint64(seed))}
}

// At derives the source for a 2D coordinate.
func At(seed int64, x, z int, salt uint64) RNG {
	return RNG{state: mathx.Hash2(seed^int64(salt), x, z)}
}

// At3 derives the source for a 3D coordinate.
func At3(seed int64, x, y, z int, salt uint64) RNG {
	return RNG{state: mathx.Hash3(seed^int64(salt), x, y, z)}
}

// Seed derives a sub-seed for a purpose, e.g. a noise backend.
func Seed(seed int64, salt uint64) int64 {
	return int64(mathx.Mix64(uint64(seed) ^ mathx.Mix64(salt)))
}

func (r *RNG) Uint64() uint64 {
	r.state += 0x9e3779b97f4a7c15
	return mathx.Mix64(r.state - 0x9e3779b97f4a7c15)
}

func (r *RNG) Int63() int64 {
	return int64(r.Uint64() >> 1)
}

// Int returns a uniform value in [0, n). n must be > 0.
func (r *RNG) Int(n int) int {
	if n <= 0 {
		panic("rng: Int with non-positive bound")
	}
	if n == 1 {
		return 0
	}
	bound := uint64(n)
	// Rejection sampling removes modulo bias.
	threshold := -bound % bound
	for {
		v := r.Uint64()
		if v >= threshold {
			return int(v % bound)
		}
	}
}

// Float64 returns a uniform value in [0, 1).
func (r *RNG) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

func (r *RNG) Range(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Int(hi-lo+1)
}

// Parallel returns an independent child stream; the parent is not advanced.
func (r RNG) Parallel(salt uint64) RNG {
	return RNG{state: mathx.Mix64(r.state ^ mathx.Mix64(salt+0x632be59bd9b4e019))}
}

func (r RNG) State() uint64 { return r.state }
