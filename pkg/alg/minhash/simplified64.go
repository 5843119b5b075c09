package minhash

import (
	"fmt"
	"math"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/internal/hashutil"
)

// Simplified64 is the 64-bit modulus-free engine: h_i(x) = |a_i*x + b_i| with
// int64 wraparound, math.MinInt64 mapping to 0.
type Simplified64 struct {
	coefs [][2]int64
}

// NewSimplified64 creates an engine with size hash functions.
func NewSimplified64(size int, seed int64) (*Simplified64, error) {
	err := checkSize(size)
	if err != nil {
		return nil, err
	}

	stream := hashutil.NewStream(seed)
	coefs := make([][2]int64, size)

	for i := range coefs {
		coefs[i][0] = stream.NextInt63()
		coefs[i][1] = stream.NextInt63()
	}

	return &Simplified64{coefs: coefs}, nil
}

// Hash computes h_i(x).
func (s *Simplified64) Hash(i int, x int64) int64 {
	ret := s.coefs[i][0]*x + s.coefs[i][1]
	if ret == math.MinInt64 {
		return 0
	}

	if ret < 0 {
		return -ret
	}

	return ret
}

// Signature returns the signature of the given values.
func (s *Simplified64) Signature(values []int64) []int64 {
	sig := newSignature64(len(s.coefs))

	for _, x := range values {
		for i := range sig {
			sig[i] = min(sig[i], s.Hash(i, x))
		}
	}

	return sig
}

// SignatureOf returns the signature of {x} without building a set. Unioning
// such signatures is equivalent to hashing the whole set at once.
func (s *Simplified64) SignatureOf(x int64) []int64 {
	sig := make([]int64, len(s.coefs))
	for i := range sig {
		sig[i] = s.Hash(i, x)
	}

	return sig
}

// Union returns the component-wise minimum of two signatures.
func (s *Simplified64) Union(a, b []int64) ([]int64, error) {
	return Union64(a, b)
}

// SignatureSize returns the number of hash functions.
func (s *Simplified64) SignatureSize() int {
	return len(s.coefs)
}

// Coefficients returns a copy of the (a, b) pairs.
func (s *Simplified64) Coefficients() [][2]int64 {
	return copyCoefficients(s.coefs)
}

// Union64 merges signatures by component-wise minimum. A single signature is
// returned as a copy; zero signatures is an error.
func Union64(sigs ...[]int64) ([]int64, error) {
	if len(sigs) == 0 {
		return nil, ErrNoSignatures
	}

	out := make([]int64, len(sigs[0]))
	copy(out, sigs[0])

	for _, sig := range sigs[1:] {
		err := unionInto64(out, sig)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func unionInto64(dst, src []int64) error {
	if len(dst) != len(src) {
		return fmt.Errorf("%w: %d != %d", ErrSizeMismatch, len(dst), len(src))
	}

	for i := range dst {
		dst[i] = min(dst[i], src[i])
	}

	return nil
}

func newSignature64(size int) []int64 {
	sig := make([]int64, size)
	for i := range sig {
		sig[i] = math.MaxInt64
	}

	return sig
}
