// Package hashutil provides shared hash mixing and seeded random streams
// for the probabilistic structures (MinHash coefficients, HyperLogLog).
//
// All mixing uses the splitmix64 finalizer by Vigna (2014) which provides
// full-avalanche mixing across all 64 bits.
package hashutil

import (
	"hash/fnv"
	"math"
)

// Splitmix64 constants from the splitmix64 finalizer by Vigna (2014).
const (
	// MixShift1 is the first right-shift in the splitmix64 finalizer.
	MixShift1 = 30

	// MixMul1 is the first multiplier in the splitmix64 finalizer.
	MixMul1 = 0xbf58476d1ce4e5b9

	// MixShift2 is the second right-shift in the splitmix64 finalizer.
	MixShift2 = 27

	// MixMul2 is the second multiplier in the splitmix64 finalizer.
	MixMul2 = 0x94d049bb133111eb

	// MixShift3 is the third right-shift in the splitmix64 finalizer.
	MixShift3 = 31

	// GoldenGamma is the golden-ratio-derived increment
	// used in the Splitmix64 state-advance function.
	GoldenGamma = 0x9e3779b97f4a7c15
)

// Mix64 applies the splitmix64 finalizer for full-avalanche mixing.
// This is a pure output function, it does NOT advance any state.
func Mix64(v uint64) uint64 {
	v ^= v >> MixShift1
	v *= MixMul1
	v ^= v >> MixShift2
	v *= MixMul2
	v ^= v >> MixShift3

	return v
}

// FNV64a computes a 64-bit FNV-1a hash of the given data.
func FNV64a(data []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(data)

	return h.Sum64()
}

// Stream is a deterministic splitmix64 generator. Two streams created from
// the same seed yield the same sequence, which is what makes independently
// constructed MinHash engines comparable.
type Stream struct {
	state uint64
}

// NewStream creates a stream seeded with seed.
func NewStream(seed int64) *Stream {
	return &Stream{state: uint64(seed)}
}

// Next advances the state by the golden-ratio increment and returns the mixed output.
func (s *Stream) Next() uint64 {
	s.state += GoldenGamma

	return Mix64(s.state)
}

// NextInt31 returns a value in [0, math.MaxInt32].
func (s *Stream) NextInt31() int32 {
	return int32(s.Next() >> 33) //nolint:gosec // 31 significant bits always fit.
}

// NextInt63 returns a value in [0, math.MaxInt64].
func (s *Stream) NextInt63() int64 {
	return int64(s.Next() >> 1) //nolint:gosec // 63 significant bits always fit.
}

// NextInt63n returns a value in [0, n). n must be positive.
func (s *Stream) NextInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}

	if n == math.MaxInt64 {
		return s.NextInt63()
	}

	return s.NextInt63() % n
}
